package stops

import "github.com/paulmach/orb"

// Source dataset column names. The stops table keeps the upstream casing so
// raw and derived artifacts stay joinable.
const (
	ColStopID   = "STOP_ID"
	ColStopName = "STOP_NAME"
	ColMode     = "MODE"
)

// Stop is one authoritative public transport stop.
type Stop struct {
	ID          string
	Name        string
	TransitMode string
	Location    orb.Point
}
