package config

import (
	"context"
	"os"

	"github.com/minizivpn/tunneld/sync"
	"go.uber.org/zap"
)

// Manager holds the running config and re-reads it from disk on request.
// Only the routes section takes effect without a restart.
type Manager struct {
	*sync.Notifier[*Config]
	path string
	log  *zap.Logger
}

func NewManager(path string, log *zap.Logger) (*Manager, error) {
	conf, err := Load(path)
	if err != nil {
		return nil, err
	}

	return Loaded(path, conf, log), nil
}

// Loaded returns a Manager for conf, which the caller has already read from
// path. The daemon uses it to build its logger from the config before the
// Manager exists.
func Loaded(path string, conf *Config, log *zap.Logger) *Manager {
	return &Manager{
		Notifier: sync.NewNotifier(conf),
		path:     path,
		log:      log,
	}
}

// Static returns a Manager for a config that never changes.
func Static(conf *Config) *Manager {
	return Loaded("", conf, zap.NewNop())
}

func (m *Manager) Current() *Config {
	conf, _ := m.LastChange()
	return conf
}

// Reload parses the file again. The running config is left alone if the new
// one doesn't parse.
func (m *Manager) Reload() error {
	conf, err := Load(m.path)
	if err != nil {
		return err
	}

	m.NotifyChange(conf)

	return nil
}

// Run reloads the config every time something arrives on reload, usually
// SIGHUP.
func (m *Manager) Run(ctx context.Context, reload <-chan os.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reload:
			if m.path == "" {
				continue
			}

			if err := m.Reload(); err != nil {
				m.log.Warn("config reload failed, keeping running config", zap.String("path", m.path), zap.Error(err))
				continue
			}

			m.log.Info("config reloaded", zap.String("path", m.path), zap.String("exclude", m.Current().Routes.Exclude))
		}
	}
}
