package session

import (
	"context"
	"sync"
	"time"

	"github.com/Kyz7/console/internal/listfetch"
	"github.com/Kyz7/console/internal/resource"
	"github.com/Kyz7/console/internal/viewstate"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Workspace is everything one signed-in user has open: a view-state store and
// a fetch orchestrator for every list screen.
type Workspace struct {
	Subject string

	tables   map[resource.Name]*listfetch.Orchestrator
	lastSeen time.Time
}

func (w *Workspace) Table(name resource.Name) (*listfetch.Orchestrator, bool) {
	o, ok := w.tables[name]
	return o, ok
}

func (w *Workspace) close() {
	for _, o := range w.tables {
		o.Close()
	}
}

type Manager struct {
	client   listfetch.Lister
	debounce time.Duration
	log      *zap.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewManager(client listfetch.Lister, debounce time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		client:     client,
		debounce:   debounce,
		log:        log,
		workspaces: map[string]*Workspace{},
	}
}

// Acquire returns the caller's workspace, creating it on first use. The token
// source is refreshed on every call so background fetches use the latest token.
func (m *Manager) Acquire(subject string, tokens oauth2.TokenSource) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workspaces[subject]
	if !ok {
		w = &Workspace{
			Subject: subject,
			tables:  map[resource.Name]*listfetch.Orchestrator{},
		}
		for _, def := range resource.All() {
			store := viewstate.New(def.DefaultPageSize)
			w.tables[def.Name] = listfetch.New(def, store, m.client, tokens, listfetch.Options{
				Debounce: m.debounce,
				Log:      m.log.With(zap.String("subject", subject)),
			})
		}
		m.workspaces[subject] = w
		m.log.Debug("workspace created", zap.String("subject", subject))
	} else {
		for _, o := range w.tables {
			o.SetTokenSource(tokens)
		}
	}

	w.lastSeen = time.Now()
	return w
}

func (m *Manager) Dispose(subject string) bool {
	m.mu.Lock()
	w, ok := m.workspaces[subject]
	delete(m.workspaces, subject)
	m.mu.Unlock()

	if !ok {
		return false
	}
	w.close()
	m.log.Debug("workspace disposed", zap.String("subject", subject))
	return true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Sweep disposes workspaces idle for longer than ttl and returns how many went.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	var stale []*Workspace
	for subject, w := range m.workspaces {
		if w.lastSeen.Before(cutoff) {
			stale = append(stale, w)
			delete(m.workspaces, subject)
		}
	}
	m.mu.Unlock()

	for _, w := range stale {
		w.close()
	}
	return len(stale)
}

func (m *Manager) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(ttl); n > 0 {
				m.log.Info("disposed idle workspaces", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) Close() {
	m.mu.Lock()
	all := m.workspaces
	m.workspaces = map[string]*Workspace{}
	m.mu.Unlock()

	for _, w := range all {
		w.close()
	}
}
