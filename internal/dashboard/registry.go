package dashboard

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"chainscope.io/dashboard/internal/logging"
)

type session struct {
	agg      *Aggregator
	lastUsed time.Time
}

// Registry maps session ids to aggregators and evicts sessions left idle longer than the
// configured TTL.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	return &Registry{
		deps:         deps,
		idleTTL:      idleTTL,
		logger:       logging.Component(deps.Logger, "dashboard_registry"),
		now:          time.Now,
		sessions:     make(map[string]*session),
		shutdownChan: make(chan struct{}),
	}
}

// Get returns an existing session and marks it used.
func (r *Registry) Get(id string) (*Aggregator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastUsed = r.now()
	return s.agg, nil
}

// GetOrCreate returns the session for id, creating an idle one if needed.
func (r *Registry) GetOrCreate(id string) *Aggregator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastUsed = r.now()
		return s.agg
	}
	agg := New(id, r.deps)
	r.sessions[id] = &session{agg: agg, lastUsed: r.now()}
	r.deps.Metrics.SetActiveSessions(len(r.sessions))
	return agg
}

// Delete drops the session. In-flight fetches of the session are discarded.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.deps.Metrics.SetActiveSessions(len(r.sessions))
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.agg.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SessionInfo describes one live session.
type SessionInfo struct {
	ID       string
	LastUsed time.Time
	View     View
}

// Sessions lists live sessions ordered by id without touching their idle clocks.
func (r *Registry) Sessions() []SessionInfo {
	r.mu.Lock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	aggs := make([]*Aggregator, 0, len(r.sessions))
	for id, s := range r.sessions {
		infos = append(infos, SessionInfo{ID: id, LastUsed: s.lastUsed})
		aggs = append(aggs, s.agg)
	}
	r.mu.Unlock()

	for i, agg := range aggs {
		infos[i].View = agg.View()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Sweep evicts idle sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*Aggregator
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			evicted = append(evicted, s.agg)
			delete(r.sessions, id)
		}
	}
	if len(evicted) > 0 {
		r.deps.Metrics.SetActiveSessions(len(r.sessions))
	}
	r.mu.Unlock()

	for _, agg := range evicted {
		agg.Close()
	}
	if len(evicted) > 0 {
		r.logger.Info("evicted idle dashboard sessions", slog.Int("count", len(evicted)))
	}
	return len(evicted)
}

// StartSweeper runs Sweep every interval until Shutdown.
func (r *Registry) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.shutdownChan:
				return
			}
		}
	}()
}

// Shutdown stops the sweeper and waits for it to exit.
func (r *Registry) Shutdown() {
	r.shutdownOnce.Do(func() {
		close(r.shutdownChan)
	})
	r.wg.Wait()
}
