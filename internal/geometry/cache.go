package geometry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/singleflight"

	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/metrics"
)

const defaultLoadTimeout = 60 * time.Second

// Cache holds the current geometry snapshot. The snapshot is swapped atomically and never
// mutated, so lookups take no lock.
type Cache struct {
	source      Source
	logger      *slog.Logger
	metrics     *metrics.Collector
	loadTimeout time.Duration

	snapshot atomic.Pointer[Snapshot]
	loaded   atomic.Bool
	group    singleflight.Group

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// Stats describes the current snapshot.
type Stats struct {
	Loaded   bool      `json:"loaded"`
	Source   string    `json:"source"`
	Roads    int       `json:"roads"`
	Pairs    int       `json:"pairs"`
	LoadedAt time.Time `json:"loadedAt,omitempty"`
}

func NewCache(source Source, logger *slog.Logger, m *metrics.Collector) *Cache {
	return &Cache{
		source:       source,
		logger:       logging.Component(logger, "geometry_cache"),
		metrics:      m,
		loadTimeout:  defaultLoadTimeout,
		shutdownChan: make(chan struct{}),
	}
}

// Load fetches the geometry snapshot once. Callers arriving while a load is in flight wait
// for that load. After a successful load it returns immediately; after a failure the next
// call tries again. A caller whose ctx ends stops waiting but does not cancel the load.
func (c *Cache) Load(ctx context.Context) error {
	if c.loaded.Load() {
		return nil
	}
	return c.fetch(ctx, false)
}

// Reload refetches the snapshot even if one is loaded. On failure the previous snapshot stays.
func (c *Cache) Reload(ctx context.Context) error {
	return c.fetch(ctx, true)
}

func (c *Cache) fetch(ctx context.Context, force bool) error {
	ch := c.group.DoChan("load", func() (interface{}, error) {
		if !force && c.loaded.Load() {
			return nil, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		start := time.Now()
		snap, err := c.source.Fetch(loadCtx)
		if err != nil {
			c.metrics.GeometryLoaded(0, err)
			logging.LogError(c.logger, "geometry load failed, trips degrade to straight lines", err,
				slog.String("source", c.source.Name()))
			return nil, fmt.Errorf("loading geometry from %s: %w", c.source.Name(), err)
		}

		snap.loadedAt = time.Now()
		c.snapshot.Store(snap)
		c.loaded.Store(true)
		c.metrics.GeometryLoaded(snap.RoadCount(), nil)

		logging.LogOperation(c.logger, "geometry_loaded",
			slog.String("source", c.source.Name()),
			slog.Int("roads", snap.RoadCount()),
			slog.Int("pairs", snap.PairCount()),
			slog.Duration("duration", time.Since(start)))
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loaded reports whether a snapshot is available.
func (c *Cache) Loaded() bool {
	return c.loaded.Load()
}

// Get returns the geometry of roadID.
func (c *Cache) Get(roadID string) (orb.LineString, bool) {
	return c.snapshot.Load().Road(roadID)
}

// GetPair returns the geometry between two scan locations.
func (c *Cache) GetPair(from, to string) (orb.LineString, bool) {
	return c.snapshot.Load().Pair(from, to)
}

func (c *Cache) Stats() Stats {
	snap := c.snapshot.Load()
	stats := Stats{
		Loaded: c.loaded.Load(),
		Source: c.source.Name(),
		Roads:  snap.RoadCount(),
		Pairs:  snap.PairCount(),
	}
	if snap != nil {
		stats.LoadedAt = snap.loadedAt
	}
	return stats
}

// StartRefresher reloads the snapshot every interval until Shutdown.
func (c *Cache) StartRefresher(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.wg.Add(1)
	go c.refresh(interval)
}

func (c *Cache) refresh(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// failures are logged inside fetch; the old snapshot stays in place
			_ = c.Reload(context.Background())
		case <-c.shutdownChan:
			c.logger.Info("stopping geometry refresher")
			return
		}
	}
}

// Shutdown stops the refresher and waits for it to exit.
func (c *Cache) Shutdown() {
	c.shutdownOnce.Do(func() {
		close(c.shutdownChan)
		c.wg.Wait()
	})
}
