package coverage

import "go.uber.org/zap"

// StageCounts are per-item outcomes of one pipeline stage.
type StageCounts struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// RunSummary is the end-of-run report. Partial success is a normal outcome:
// the run only counts as failed when nothing succeeded anywhere while at
// least one item did fail.
type RunSummary struct {
	Fetch       StageCounts
	Normalize   StageCounts
	Consolidate StageCounts
	Publish     StageCounts
}

func (s *RunSummary) succeeded() int {
	return s.Fetch.Succeeded + s.Normalize.Succeeded + s.Consolidate.Succeeded + s.Publish.Succeeded
}

func (s *RunSummary) failed() int {
	return s.Fetch.Failed + s.Normalize.Failed + s.Consolidate.Failed + s.Publish.Failed
}

// Failed reports whether the run as a whole should signal a non-zero
// outcome. A fully cached run (everything skipped) is a success.
func (s *RunSummary) Failed() bool {
	return s.succeeded() == 0 && s.failed() > 0
}

// Log emits the per-stage summary.
func (s *RunSummary) Log(logger *zap.Logger) {
	logger.Info("run summary",
		zap.Int("fetched", s.Fetch.Succeeded),
		zap.Int("fetch_skipped", s.Fetch.Skipped),
		zap.Int("fetch_failed", s.Fetch.Failed),
		zap.Int("normalized", s.Normalize.Succeeded),
		zap.Int("normalize_skipped", s.Normalize.Skipped),
		zap.Int("normalize_failed", s.Normalize.Failed),
		zap.Int("consolidated", s.Consolidate.Succeeded),
		zap.Int("consolidate_skipped", s.Consolidate.Skipped),
		zap.Int("consolidate_failed", s.Consolidate.Failed),
		zap.Int("published", s.Publish.Succeeded),
		zap.Int("publish_skipped", s.Publish.Skipped),
		zap.Int("publish_failed", s.Publish.Failed))
}
