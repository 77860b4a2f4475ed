package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
)

// Observer is told about every persisted change.
type Observer interface {
	SettingsUpdated(s Settings)
}

// Manager owns the in-memory settings record. Mutations are validated,
// persisted and then announced.
type Manager struct {
	store  Store
	logger *slog.Logger

	mu        sync.RWMutex
	current   Settings
	observers []Observer
}

func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger, current: Defaults()}
}

// Load reads the stored record. When nothing is stored yet, seed is applied
// to the defaults (used for the configured host/port on first start).
func (m *Manager) Load(ctx context.Context, seed func(*Settings)) error {
	st, ok, err := m.store.Load(ctx)
	if err != nil {
		return bwerrors.StorageError("load settings", err)
	}
	if !ok && seed != nil {
		seed(&st)
	}
	if err := st.Validate(); err != nil {
		m.logger.Warn("Stored settings invalid, using defaults", logfields.Error(err))
		st = Defaults()
	}

	m.mu.Lock()
	m.current = st
	m.mu.Unlock()
	m.logger.Debug("Settings loaded", logfields.Host(st.ServerHost), logfields.Port(st.ServerPort))
	return nil
}

// Subscribe registers an observer.
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Current returns a copy of the record.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update applies fn to a copy of the record, validates, persists and
// notifies. Nothing changes when any step fails.
func (m *Manager) Update(ctx context.Context, fn func(*Settings)) (Settings, error) {
	m.mu.Lock()
	next := m.current
	fn(&next)
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return m.Current(), bwerrors.ValidationFailed("settings", err.Error())
	}
	if err := m.store.Save(ctx, next); err != nil {
		m.mu.Unlock()
		return m.Current(), bwerrors.StorageError("save settings", err)
	}
	m.current = next
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	for _, o := range observers {
		o.SettingsUpdated(next)
	}
	return next, nil
}

// SetServer records where the companion server was found.
func (m *Manager) SetServer(ctx context.Context, host string, port int) error {
	_, err := m.Update(ctx, func(s *Settings) {
		s.ServerHost = host
		s.ServerPort = port
	})
	if err != nil {
		return fmt.Errorf("set server %s:%d: %w", host, port, err)
	}
	return nil
}

// Server returns the configured host and port.
func (m *Manager) Server() (string, int) {
	s := m.Current()
	return s.ServerHost, s.ServerPort
}
