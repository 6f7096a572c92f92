package stops

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/config"
)

// Table is the read-only stops reference consumed by the fetch, normalize
// and spatial stages. Construction applies the dataset hygiene rules once:
// name-pattern exclusion, duplicate-name collapse keeping the first
// occurrence, and a stable ordering by transit-mode priority.
type Table struct {
	stops []Stop
	byID  map[string]Stop
}

// Load reads the authoritative stops GeoJSON and builds the table.
func Load(path string, cfg *config.StopsConfig, logger *zap.Logger) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stops table: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse stops table: %w", err)
	}

	seenNames := map[string]bool{}
	t := &Table{byID: map[string]Stop{}}
	dropped := 0
	for _, f := range fc.Features {
		name := propString(f.Properties, ColStopName)
		if cfg.ExcludeNamePattern != "" && strings.Contains(name, cfg.ExcludeNamePattern) {
			dropped++
			continue
		}
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			logger.Warn("stop without point geometry, skipping",
				zap.String("stop_name", name))
			continue
		}
		if seenNames[name] {
			continue
		}
		seenNames[name] = true
		s := Stop{
			ID:          propString(f.Properties, ColStopID),
			Name:        name,
			TransitMode: propString(f.Properties, ColMode),
			Location:    pt,
		}
		t.stops = append(t.stops, s)
		if s.ID != "" {
			t.byID[s.ID] = s
		}
	}

	// Priority order drives which stops get fetched first under a limit.
	rank := make(map[string]int, len(cfg.TransitModes))
	for i, m := range cfg.TransitModes {
		rank[m] = i
	}
	sort.SliceStable(t.stops, func(i, j int) bool {
		return modeRank(rank, t.stops[i].TransitMode) < modeRank(rank, t.stops[j].TransitMode)
	})

	logger.Info("stops table loaded",
		zap.Int("stops", len(t.stops)),
		zap.Int("excluded_by_name", dropped))
	return t, nil
}

func modeRank(rank map[string]int, mode string) int {
	if r, ok := rank[mode]; ok {
		return r
	}
	return len(rank) + 1
}

// All returns every stop in priority order.
func (t *Table) All() []Stop { return t.stops }

// WithTransitModes returns the stops whose transit mode is in the given set,
// preserving priority order.
func (t *Table) WithTransitModes(modes []string) []Stop {
	in := make(map[string]bool, len(modes))
	for _, m := range modes {
		in[m] = true
	}
	var out []Stop
	for _, s := range t.stops {
		if in[s.TransitMode] {
			out = append(out, s)
		}
	}
	return out
}

// Get looks a stop up by id for normalizer enrichment.
func (t *Table) Get(id string) (Stop, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// propString reads a property as a string regardless of whether the source
// dataset encodes it as string or number.
func propString(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
