package store

import "os"

// Dirty reports whether outputs must be regenerated from inputs.
//
// The rule: dirty if any output is missing, or the oldest output is older
// than the newest input. With no outputs the answer is always true (forces
// first generation). With no inputs only a missing output matters — nothing
// can make an output stale relative to no inputs. Inputs that cannot be
// stat'ed are ignored.
func Dirty(outputs, inputs []string) bool {
	if len(outputs) == 0 {
		return true
	}
	var minOut int64
	for i, o := range outputs {
		st, err := os.Stat(o)
		if err != nil {
			return true
		}
		m := st.ModTime().UnixNano()
		if i == 0 || m < minOut {
			minOut = m
		}
	}
	var maxIn int64
	seen := false
	for _, in := range inputs {
		st, err := os.Stat(in)
		if err != nil {
			continue
		}
		m := st.ModTime().UnixNano()
		if !seen || m > maxIn {
			maxIn = m
			seen = true
		}
	}
	if !seen {
		return false
	}
	return minOut < maxIn
}

// DirtyFile is the single-output convenience form of Dirty.
func DirtyFile(output string, inputs ...string) bool {
	return Dirty([]string{output}, inputs)
}
