package coverage

import (
	"fmt"
	"os"
	"strings"

	"github.com/theoremus-urban-solutions/transit-coverage/config"
	"github.com/theoremus-urban-solutions/transit-coverage/stops"
	"github.com/theoremus-urban-solutions/transit-coverage/store"
)

// StatusRow reports cache completeness for one (travel mode, transit mode)
// combination.
type StatusRow struct {
	TravelMode    string
	TransitMode   string
	Expected      int
	Cached        int
	Remaining     int
	CachedPercent float64
}

func (r StatusRow) String() string {
	return fmt.Sprintf("%-16s %-16s: expected %5d\tcached %5d\tremaining %5d\t%.2f%%",
		strings.ToUpper(r.TravelMode), strings.ToUpper(r.TransitMode),
		r.Expected, r.Cached, r.Remaining, r.CachedPercent)
}

// CacheStatus walks the expected isochrone set and reports, per travel mode
// and transit mode, how much of it is already cached. Read-only: nothing in
// the cache tree is touched.
func CacheStatus(table *stops.Table, st *store.Store, cfg *config.AppConfig) []StatusRow {
	type key struct{ travel, transit string }
	expected := map[key]int{}
	cached := map[key]int{}
	for _, s := range table.WithTransitModes(cfg.Stops.TransitModes) {
		for _, mode := range cfg.Isochrones.Modes {
			k := key{mode, s.TransitMode}
			expected[k]++
			if _, err := os.Stat(st.RawIsochrone(mode, s.ID, s.Name)); err == nil {
				cached[k]++
			}
		}
	}
	var rows []StatusRow
	for _, mode := range cfg.Isochrones.Modes {
		for _, tmode := range cfg.Stops.TransitModes {
			k := key{mode, tmode}
			exp, got := expected[k], cached[k]
			pct := 100.0
			if exp > 0 {
				pct = float64(got) / float64(exp) * 100.0
			}
			rows = append(rows, StatusRow{
				TravelMode:    mode,
				TransitMode:   tmode,
				Expected:      exp,
				Cached:        got,
				Remaining:     exp - got,
				CachedPercent: pct,
			})
		}
	}
	return rows
}
