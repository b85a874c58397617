package config

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/minizivpn/tunneld/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const full = `
api:
  socket: /tmp/tunneld.sock

routes:
  exclude: 203.0.113.7
  cache-ttl: 2m
  cache-size: 16

probe:
  interval: 10
  timeout: 2s
  source: static
  cells:
    - type: lte
      registered: false
      rsrp: -110
      sinr: 3
    - type: nr
      registered: true
      rsrp: -85
      sinr: 18

metrics:
  listen: 127.0.0.1:9105

log:
  level: debug
  format: json
`

func TestParseFull(t *testing.T) {
	c, err := Parse(full)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/tunneld.sock", c.API.Socket)
	assert.Equal(t, "203.0.113.7", c.Routes.Exclude)
	assert.Equal(t, 2*time.Minute, c.Routes.CacheTTL)
	assert.Equal(t, 16, c.Routes.CacheSize)
	assert.Equal(t, 10*time.Second, c.Probe.Interval)
	assert.Equal(t, 2*time.Second, c.Probe.Timeout)
	assert.Equal(t, SourceStatic, c.Probe.Source)
	assert.Equal(t, []signal.Sample{
		{Technology: signal.Tech4G, RSRP: -110, SINR: 3},
		{Technology: signal.Tech5G, RSRP: -85, SINR: 18, Registered: true},
	}, c.Probe.Cells)
	assert.Equal(t, "127.0.0.1:9105", c.Metrics.Listen)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, c.Log)
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	c, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	c, err = Parse("routes:\n")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestParseFileSource(t *testing.T) {
	c, err := Parse("probe:\n  source: file\n  path: /data/cellinfo.yaml\n")
	require.NoError(t, err)

	assert.Equal(t, SourceFile, c.Probe.Source)
	assert.Equal(t, "/data/cellinfo.yaml", c.Probe.Path)
}

func TestParseShortIntervalShrinksDefaultTimeout(t *testing.T) {
	c, err := Parse("probe:\n  interval: 2s\n")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, c.Probe.Interval)
	assert.Equal(t, 2*time.Second, c.Probe.Timeout)

	c, err = Parse("probe:\n  interval: 2s\n  timeout: 1s\n")
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.Probe.Timeout)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "unknown section", yaml: "bgp: {}", want: "unknown top level key: bgp"},
		{name: "section not a map", yaml: "routes: 1", want: "routes must be a map"},
		{name: "unknown key", yaml: "routes: {gateway: 1.1.1.1}", want: "routes: unknown key: gateway"},
		{name: "exclude not a string", yaml: "routes: {exclude: 12}", want: "routes: exclude must be a string"},
		{name: "cache too small", yaml: "routes: {cache-size: 0}", want: "routes: cache-size too small: 0"},
		{name: "bad duration", yaml: "probe: {interval: soon}", want: "probe: invalid interval"},
		{name: "negative duration", yaml: "probe: {interval: -5s}", want: "probe: interval must be positive"},
		{name: "unknown source", yaml: "probe: {source: modem}", want: "probe: unknown source: modem"},
		{name: "file without path", yaml: "probe: {source: file}", want: "probe: source file requires path"},
		{name: "timeout too long", yaml: "probe: {interval: 1s, timeout: 5s}", want: "probe: timeout 5s is longer than interval 1s (timeout must not exceed interval)"},
		{name: "cells not a list", yaml: "probe: {cells: lte}", want: "probe: cells must be a list"},
		{name: "cell without type", yaml: "probe: {cells: [{rsrp: -90}]}", want: "probe: cell 0: missing or unavailable type"},
		{name: "rsrp out of range", yaml: "probe: {cells: [{type: lte, rsrp: 10}]}", want: "probe: cell 0: cell: rsrp too big: 10"},
		{name: "bad listen", yaml: "metrics: {listen: nowhere}", want: "metrics: invalid listen address"},
		{name: "bad level", yaml: "log: {level: loud}", want: "log: unknown level: loud"},
		{name: "empty socket", yaml: "api: {socket: ''}", want: "api: socket must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCell(t *testing.T) {
	s, err := ParseCell(map[string]interface{}{"type": "wifi"})
	require.NoError(t, err)
	assert.Equal(t, signal.TechOther, s.Technology)

	_, err = ParseCell(map[string]interface{}{"type": "lte", "registered": "yes"})
	assert.EqualError(t, err, "cell: registered must be a boolean")
}

func TestManagerReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunneld.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes: {exclude: 198.51.100.1}\n"), 0o644))

	m, err := NewManager(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1", m.Current().Routes.Exclude)

	require.NoError(t, os.WriteFile(path, []byte("routes: {exclude: 198.51.100.2}\n"), 0o644))
	require.NoError(t, m.Reload())
	assert.Equal(t, "198.51.100.2", m.Current().Routes.Exclude)

	require.NoError(t, os.WriteFile(path, []byte("routes: {bogus: 1}\n"), 0o644))
	assert.Error(t, m.Reload())
	assert.Equal(t, "198.51.100.2", m.Current().Routes.Exclude)
}

func TestManagerRunReloadsOnSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunneld.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes: {exclude: 198.51.100.1}\n"), 0o644))

	m, err := NewManager(path, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reload := make(chan os.Signal)
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, reload)
	}()

	_, seq := m.LastChange()

	require.NoError(t, os.WriteFile(path, []byte("routes: {exclude: 198.51.100.9}\n"), 0o644))
	reload <- syscall.SIGHUP

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()

	conf, _ := m.AwaitChange(waitCtx, seq)
	assert.Equal(t, "198.51.100.9", conf.Routes.Exclude)

	cancel()
	assert.NoError(t, <-done)
}

func TestStaticManager(t *testing.T) {
	c := Default()
	c.Routes.Exclude = "192.0.2.10"

	m := Static(c)
	assert.Equal(t, "192.0.2.10", m.Current().Routes.Exclude)
}
