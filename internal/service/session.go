// Package service contains the session registry, change events and vector
// tile rendering for plat-sketch.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/geo"
)

// ErrNotFound is returned for an unknown map ID.
var ErrNotFound = errors.New("map not found")

// ErrClosed is returned when mounting on a closed service.
var ErrClosed = errors.New("session service closed")

// Defaults are applied to every mount that does not override them.
type Defaults struct {
	Center      geo.LonLat
	Zoom        float64
	Width       int
	Height      int
	StyleURL    string
	MarkerIcon  string
	MarkerScale float64
}

// MountOptions override Defaults for one map.
type MountOptions struct {
	Center *geo.LonLat
	Zoom   *float64
	Width  int
	Height int
}

// Session is one mounted map.
type Session struct {
	ID      string
	Created time.Time
	*controller.Controller
}

// SessionService is the registry of mounted maps. Each session owns its own
// controller; nothing is shared between sessions except the event bus.
type SessionService struct {
	defaults Defaults
	styles   controller.StyleLoader
	bus      *EventBus
	log      zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewSessionService creates a registry. styles may be nil to disable the
// base map style.
func NewSessionService(defaults Defaults, styles controller.StyleLoader, log zerolog.Logger) *SessionService {
	return &SessionService{
		defaults: defaults,
		styles:   styles,
		bus:      NewEventBus(),
		log:      log.With().Str("component", "sessions").Logger(),
		sessions: make(map[string]*Session),
	}
}

// Bus returns the event bus carrying every session's changes.
func (s *SessionService) Bus() *EventBus { return s.bus }

// Defaults returns the mount defaults.
func (s *SessionService) Defaults() Defaults { return s.defaults }

// Mount creates, mounts and registers a new map.
func (s *SessionService) Mount(ctx context.Context, opts MountOptions) (*Session, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	id := uuid.NewString()
	cfg := controller.Config{
		Center:      s.defaults.Center,
		Zoom:        s.defaults.Zoom,
		Width:       s.defaults.Width,
		Height:      s.defaults.Height,
		StyleURL:    s.defaults.StyleURL,
		Styles:      s.styles,
		MarkerIcon:  s.defaults.MarkerIcon,
		MarkerScale: s.defaults.MarkerScale,
		Logger:      s.log.With().Str("map", id).Logger(),
		OnChange: func(kind controller.ChangeKind) {
			s.bus.Publish(Event{Resource: "maps", Action: string(kind), ID: id})
		},
	}
	if opts.Center != nil {
		cfg.Center = *opts.Center
	}
	if opts.Zoom != nil {
		cfg.Zoom = *opts.Zoom
	}
	if opts.Width > 0 {
		cfg.Width = opts.Width
	}
	if opts.Height > 0 {
		cfg.Height = opts.Height
	}

	sess := &Session{ID: id, Created: time.Now(), Controller: controller.New(cfg)}

	// register first so the mounted event can be resolved by subscribers
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	if err := sess.Mount(ctx); err != nil {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("mounting map: %w", err)
	}
	s.log.Info().Str("map", id).Msg("map mounted")
	return sess, nil
}

// Get returns a session by ID.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// List returns all sessions, oldest first.
func (s *SessionService) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Len returns the number of mounted maps.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Unmount destroys and forgets a map.
func (s *SessionService) Unmount(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	sess.Destroy()
	s.log.Info().Str("map", id).Msg("map unmounted")
	return nil
}

// Close destroys every map and rejects further mounts.
func (s *SessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.closed = true
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Destroy()
	}
	if len(sessions) > 0 {
		s.log.Info().Int("maps", len(sessions)).Msg("sessions closed")
	}
}
