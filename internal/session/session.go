package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"garudarush/internal/models"
	"garudarush/internal/monitor"
)

const (
	MinIntervalSec = 1
	MaxIntervalSec = 10
)

// TickFunc receives the outcome of every effective scheduled tick so
// the server can fan it out (storage, websocket, metrics). alert is nil
// when the attack branch did not fire.
type TickFunc func(s *Session, sample *models.TrafficSample, alert *models.Alert)

// Session binds one isolated monitor to its scheduler. Sessions never
// share state; each has its own monitor, threshold and interval.
type Session struct {
	ID        string
	CreatedAt time.Time
	Monitor   *monitor.SessionMonitor

	onTick TickFunc

	mu          sync.Mutex
	intervalSec int
	cancel      context.CancelFunc
}

// Start flips the monitor on and launches the tick loop. Calling it on
// a running session is a no-op.
func (s *Session) Start() {
	s.Monitor.Start()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// Stop flips the monitor off and cancels the tick loop. Idempotent.
func (s *Session) Stop() {
	s.Monitor.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Tick advances the session once, outside the schedule. Used by the
// manual poll endpoint; fans out like a scheduled tick.
func (s *Session) Tick() (*models.TrafficSample, *models.Alert) {
	sample, alert := s.Monitor.Tick()
	if sample != nil && s.onTick != nil {
		s.onTick(s, sample, alert)
	}
	return sample, alert
}

// run re-reads the interval every cycle so settings changes take
// effect without restarting the loop. The monitor itself never sleeps.
func (s *Session) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval()):
			sample, alert := s.Monitor.Tick()
			if sample != nil && s.onTick != nil {
				s.onTick(s, sample, alert)
			}
		}
	}
}

func (s *Session) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.intervalSec) * time.Second
}

// Settings returns the session's current tick configuration.
func (s *Session) Settings() models.SessionSettings {
	s.mu.Lock()
	intervalSec := s.intervalSec
	s.mu.Unlock()

	return models.SessionSettings{
		DetectionThreshold: s.Monitor.Threshold(),
		UpdateIntervalSec:  intervalSec,
	}
}

// ApplySettings validates and installs new tick settings. The interval
// must be a whole number of seconds between 1 and 10; the threshold
// must be within [0, 1].
func (s *Session) ApplySettings(settings models.SessionSettings) error {
	if settings.UpdateIntervalSec < MinIntervalSec || settings.UpdateIntervalSec > MaxIntervalSec {
		return fmt.Errorf("update interval must be %d-%d seconds, got %d",
			MinIntervalSec, MaxIntervalSec, settings.UpdateIntervalSec)
	}
	if settings.DetectionThreshold < 0 || settings.DetectionThreshold > 1 {
		return fmt.Errorf("detection threshold must be within [0, 1], got %g",
			settings.DetectionThreshold)
	}

	s.Monitor.SetThreshold(settings.DetectionThreshold)

	s.mu.Lock()
	s.intervalSec = settings.UpdateIntervalSec
	s.mu.Unlock()
	return nil
}

// ApplyPatch overlays a partial settings change onto the current
// settings and installs the result.
func (s *Session) ApplyPatch(patch models.SessionSettingsPatch) error {
	return s.ApplySettings(patch.Apply(s.Settings()))
}

// Info summarizes the session for list responses.
func (s *Session) Info() models.SessionInfo {
	return models.SessionInfo{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Running:   s.Monitor.Running(),
		Settings:  s.Settings(),
	}
}

// Registry holds all live sessions, keyed by ID. Each entry is fully
// isolated from the others.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults models.SessionSettings
	onTick   TickFunc
}

func NewRegistry(defaults models.SessionSettings, onTick TickFunc) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		defaults: defaults,
		onTick:   onTick,
	}
}

// Create registers a new stopped session. Fields absent from the patch
// fall back to the registry defaults; an explicit zero threshold is a
// valid setting, not an omission.
func (r *Registry) Create(patch models.SessionSettingsPatch) (*Session, error) {
	settings := patch.Apply(r.defaults)

	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Monitor:   monitor.New(),
		onTick:    r.onTick,
	}
	if err := s.ApplySettings(settings); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns session summaries, unordered.
func (r *Registry) List() []models.SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// Delete stops and removes a session. Returns false if unknown.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		s.Stop()
	}
	return ok
}

// Count returns how many sessions are registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
