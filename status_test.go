package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStatus(t *testing.T) {
	e := newTestEnv(t)
	// Cache exactly one of the two expected isochrones.
	require.NoError(t, e.store.WriteFileAtomic(
		e.store.RawIsochrone("foot", "1001", "Stop One"), []byte("{}")))

	rows := CacheStatus(e.table, e.store, e.cfg)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "foot", r.TravelMode)
	assert.Equal(t, "METRO TRAIN", r.TransitMode)
	assert.Equal(t, 2, r.Expected)
	assert.Equal(t, 1, r.Cached)
	assert.Equal(t, 1, r.Remaining)
	assert.InDelta(t, 50.0, r.CachedPercent, 1e-9)

	assert.Contains(t, r.String(), "FOOT")
	assert.Contains(t, r.String(), "50.00%")
}
