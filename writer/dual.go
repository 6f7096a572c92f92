package writer

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/store"
)

// DualWriter materializes a feature collection twice: GeoJSON for human
// inspection and GeoParquet for compact downstream consumption. Both files
// describe the identical feature set in EPSG:4326.
type DualWriter struct {
	store  *store.Store
	logger *zap.Logger
}

// New creates a DualWriter publishing through the given store.
func New(st *store.Store, logger *zap.Logger) *DualWriter {
	return &DualWriter{store: st, logger: logger}
}

// Write persists fc to geojsonPath and its .geoparquet sibling, and reports
// the size reduction the columnar twin achieves.
func (w *DualWriter) Write(geojsonPath string, fc *geojson.FeatureCollection) error {
	jsonData, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	parquetData, err := marshalParquet(fc)
	if err != nil {
		return fmt.Errorf("encode geoparquet: %w", err)
	}
	if err := w.store.WriteFileAtomic(geojsonPath, jsonData); err != nil {
		return err
	}
	parquetPath := store.ParquetSibling(geojsonPath)
	if err := w.store.WriteFileAtomic(parquetPath, parquetData); err != nil {
		return err
	}
	ratio := 0.0
	if len(jsonData) > 0 {
		ratio = float64(len(parquetData)) / float64(len(jsonData)) * 100.0
	}
	w.logger.Info("published dual-format artifact",
		zap.String("geojson", geojsonPath),
		zap.Int("geojson_bytes", len(jsonData)),
		zap.Int("geoparquet_bytes", len(parquetData)),
		zap.String("size_ratio", fmt.Sprintf("%.2f%%", ratio)))
	return nil
}

// WriteIfDirty writes only when either output is missing or older than the
// newest input. Skipping preserves output mtimes, which every downstream
// dirty check depends on. The bool reports whether a write happened.
func (w *DualWriter) WriteIfDirty(geojsonPath string, fc *geojson.FeatureCollection, inputs []string) (bool, error) {
	outputs := []string{geojsonPath, store.ParquetSibling(geojsonPath)}
	if !store.Dirty(outputs, inputs) {
		w.logger.Debug("outputs up to date, skipping write",
			zap.String("geojson", geojsonPath))
		return false, nil
	}
	if err := w.Write(geojsonPath, fc); err != nil {
		return false, err
	}
	return true, nil
}
