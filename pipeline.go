package coverage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/config"
	"github.com/theoremus-urban-solutions/transit-coverage/consolidate"
	"github.com/theoremus-urban-solutions/transit-coverage/fetch"
	"github.com/theoremus-urban-solutions/transit-coverage/geo"
	"github.com/theoremus-urban-solutions/transit-coverage/normalize"
	"github.com/theoremus-urban-solutions/transit-coverage/spatial"
	"github.com/theoremus-urban-solutions/transit-coverage/stops"
	"github.com/theoremus-urban-solutions/transit-coverage/store"
	"github.com/theoremus-urban-solutions/transit-coverage/writer"
)

// Options tune one pipeline invocation.
type Options struct {
	// Limit caps isochrones fetched this run, making runs resumable and
	// incremental under provider quotas.
	Limit int
	// DryRun lists what the fetch stage would do without touching the
	// network or the cache, then stops.
	DryRun bool
}

// Pipeline runs the stages strictly in sequence: fetch raw isochrones,
// normalize, consolidate into coverage tiers, build boundary unions, filter
// stops, publish. Each stage finishes producing its files before the next
// starts; there is no concurrency within one invocation.
type Pipeline struct {
	cfg    *config.AppConfig
	store  *store.Store
	table  *stops.Table
	client *fetch.Client
	dual   *writer.DualWriter
	logger *zap.Logger

	// pause is the politeness delay between successful fetches.
	pause func(time.Duration)
}

// NewPipeline wires a pipeline. client may be nil, in which case the fetch
// stage is skipped (offline run over the existing cache).
func NewPipeline(cfg *config.AppConfig, st *store.Store, table *stops.Table, client *fetch.Client, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  st,
		table:  table,
		client: client,
		dual:   writer.New(st, logger),
		logger: logger,
		pause:  time.Sleep,
	}
}

// Run executes the pipeline. Per-item failures are caught at each batch
// boundary and reported in the summary; only missing upstream inputs at a
// stage boundary abort the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunSummary, error) {
	sum := &RunSummary{}

	fetchCounts, err := p.fetchStage(ctx, opts)
	sum.Fetch = fetchCounts
	if err != nil {
		return sum, err
	}
	if opts.DryRun {
		return sum, nil
	}

	norm := normalize.New(p.store, p.table, p.cfg.Isochrones.Tiers, p.logger)
	nres, err := norm.Run(p.cfg.Isochrones.Modes)
	sum.Normalize = StageCounts(nres)
	if err != nil {
		return sum, fmt.Errorf("normalize stage: %w", err)
	}

	cons := consolidate.New(p.store, p.dual, p.cfg.Isochrones.Tiers, p.logger)
	cres, err := cons.Run(p.cfg.Isochrones.Modes)
	sum.Consolidate = StageCounts{Succeeded: cres.Written, Skipped: cres.Skipped, Failed: cres.Failed}
	if err != nil {
		return sum, fmt.Errorf("consolidate stage: %w", err)
	}

	if err := p.boundaryAndFilterStage(ctx, sum); err != nil {
		return sum, err
	}

	sum.Log(p.logger)
	return sum, nil
}

// fetchStage walks stops in priority order and fetches any isochrone not
// yet cached, one request at a time. Each item is fetch, parse, then an
// atomic cache write — never write-then-validate.
func (p *Pipeline) fetchStage(ctx context.Context, opts Options) (StageCounts, error) {
	var counts StageCounts
	if p.client == nil && !opts.DryRun {
		p.logger.Info("no API client configured, fetch stage skipped")
		return counts, nil
	}
	count := 0
	for _, s := range p.table.WithTransitModes(p.cfg.Stops.TransitModes) {
		for _, mode := range p.cfg.Isochrones.Modes {
			out := p.store.RawIsochrone(mode, s.ID, s.Name)
			if _, err := os.Stat(out); err == nil {
				counts.Skipped++
				continue
			}
			if opts.Limit > 0 && count >= opts.Limit {
				p.logger.Info("fetch limit reached", zap.Int("limit", opts.Limit))
				return counts, nil
			}
			if err := ctx.Err(); err != nil {
				return counts, err
			}
			count++
			if opts.DryRun {
				p.logger.Info("dry run: would fetch isochrone",
					zap.String("mode", mode),
					zap.String("stop_id", s.ID),
					zap.String("stop_name", s.Name),
					zap.String("out", out))
				continue
			}
			if err := p.fetchOne(ctx, mode, s, out); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return counts, err
				}
				p.logger.Warn("isochrone fetch failed",
					zap.String("mode", mode),
					zap.String("stop_id", s.ID),
					zap.String("stop_name", s.Name),
					zap.Error(err))
				counts.Failed++
				continue
			}
			counts.Succeeded++
			p.pause(time.Duration(p.cfg.API.PauseSeconds) * time.Second)
		}
	}
	return counts, nil
}

func (p *Pipeline) fetchOne(ctx context.Context, mode string, s stops.Stop, out string) error {
	profile := p.cfg.Isochrones.Profiles[mode]
	payload, err := p.client.Isochrone(ctx, profile, s.Location.Lon(), s.Location.Lat(), p.cfg.Isochrones.Tiers)
	if err != nil {
		return err
	}
	// Cache only what the normalizer will be able to read.
	if _, err := geo.DetectDialect(out, payload); err != nil {
		return err
	}
	if err := p.store.WriteFileAtomic(out, payload); err != nil {
		return err
	}
	p.logger.Info("cached isochrone",
		zap.String("mode", mode),
		zap.String("stop_id", s.ID),
		zap.String("stop_name", s.Name))
	return nil
}

// boundaryAndFilterStage builds the boundary unions, filters the stop set by
// the primary union and publishes the result in both formats.
func (p *Pipeline) boundaryAndFilterStage(ctx context.Context, sum *RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	builder := spatial.NewBuilder(p.store, p.dual, p.logger)
	anchors := p.table.WithTransitModes(p.cfg.Stops.BoundaryModes)
	names, err := builder.BuildUnions(p.cfg.Boundaries.Dir, anchors, p.cfg.Stops.Path)
	if err != nil {
		return fmt.Errorf("boundary stage: %w", err)
	}
	if len(names) == 0 {
		return errors.New("boundary stage: no boundary dataset produced a union")
	}
	primary := p.cfg.Boundaries.Primary
	if primary == "" {
		primary = names[0]
	}
	union, err := builder.LoadUnion(primary)
	if err != nil {
		return fmt.Errorf("boundary stage: %w", err)
	}

	records := spatial.FilterStops(p.table.All(), p.cfg.Stops.ExcludeModes, union, p.logger)
	p.logger.Info("stops filtered by boundary union",
		zap.String("union", primary),
		zap.Int("within", len(records)))

	inputs := []string{p.cfg.Stops.Path, p.store.UnionedBoundary(primary)}
	written, err := p.dual.WriteIfDirty(p.store.StopsWithinUnion(), spatial.ToCollection(records), inputs)
	if err != nil {
		sum.Publish.Failed++
		return fmt.Errorf("publish stage: %w", err)
	}
	if written {
		sum.Publish.Succeeded++
	} else {
		sum.Publish.Skipped++
	}
	return nil
}
