package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"time"

	"github.com/minizivpn/tunneld/signal"
	"gopkg.in/yaml.v3"
)

type SourceType int

const (
	SourceStatic SourceType = iota
	SourceFile
)

func (t SourceType) String() string {
	switch t {
	case SourceStatic:
		return "static"
	case SourceFile:
		return "file"
	default:
		return fmt.Sprintf("unknown source type: %d", int(t))
	}
}

type APIConfig struct {
	Socket string
}

type RoutesConfig struct {
	// Exclude is the tunnel's upstream endpoint. It isn't validated here;
	// an unparseable value falls back to routing everything at compute time.
	Exclude   string
	CacheTTL  time.Duration
	CacheSize int
}

type ProbeConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	Source   SourceType
	Path     string
	Cells    []signal.Sample
}

type MetricsConfig struct {
	Listen string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

type Config struct {
	API     APIConfig
	Routes  RoutesConfig
	Probe   ProbeConfig
	Metrics MetricsConfig
	Log     LogConfig
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			Socket: "/var/run/tunneld.sock",
		},
		Routes: RoutesConfig{
			CacheTTL:  time.Minute,
			CacheSize: 64,
		},
		Probe: ProbeConfig{
			Interval: 30 * time.Second,
			Timeout:  5 * time.Second,
			Source:   SourceStatic,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func Load(path string) (*Config, error) {
	s, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(string(s))
}

func Parse(s string) (*Config, error) {
	var data map[string]interface{}

	if err := yaml.Unmarshal([]byte(s), &data); err != nil {
		return nil, err
	}

	c := Default()

	for k, v := range data {
		if v == nil {
			continue
		}

		section, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s must be a map", k)
		}

		var err error
		switch k {
		case "api":
			err = parseAPIConfig(&c.API, section)
		case "routes":
			err = parseRoutesConfig(&c.Routes, section)
		case "probe":
			err = parseProbeConfig(&c.Probe, section)
		case "metrics":
			err = parseMetricsConfig(&c.Metrics, section)
		case "log":
			err = parseLogConfig(&c.Log, section)
		default:
			return nil, fmt.Errorf("unknown top level key: %s", k)
		}

		if err != nil {
			return nil, err
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) validate() error {
	if c.API.Socket == "" {
		return fmt.Errorf("api: socket must not be empty")
	}

	if c.Probe.Source == SourceFile && c.Probe.Path == "" {
		return fmt.Errorf("probe: source file requires path")
	}

	if c.Probe.Timeout > c.Probe.Interval {
		return fmt.Errorf("probe: timeout %s is longer than interval %s (timeout must not exceed interval)", c.Probe.Timeout, c.Probe.Interval)
	}

	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics: invalid listen address: %s", err)
		}
	}

	return nil
}

func parseAPIConfig(c *APIConfig, data map[string]interface{}) error {
	for k, v := range data {
		switch k {
		case "socket":
			s, err := stringValue("api", k, v)
			if err != nil {
				return err
			}

			c.Socket = s
		default:
			return fmt.Errorf("api: unknown key: %s", k)
		}
	}

	return nil
}

func parseRoutesConfig(c *RoutesConfig, data map[string]interface{}) error {
	for k, v := range data {
		var err error

		switch k {
		case "exclude":
			c.Exclude, err = stringValue("routes", k, v)
		case "cache-ttl":
			c.CacheTTL, err = durationValue("routes", k, v)
		case "cache-size":
			c.CacheSize, err = intValue("routes", k, v, 1, math.MaxUint16)
		default:
			return fmt.Errorf("routes: unknown key: %s", k)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func parseProbeConfig(c *ProbeConfig, data map[string]interface{}) error {
	for k, v := range data {
		var err error

		switch k {
		case "interval":
			c.Interval, err = durationValue("probe", k, v)
		case "timeout":
			c.Timeout, err = durationValue("probe", k, v)
		case "path":
			c.Path, err = stringValue("probe", k, v)
		case "source":
			var s string
			s, err = stringValue("probe", k, v)
			if err != nil {
				return err
			}

			switch s {
			case "static":
				c.Source = SourceStatic
			case "file":
				c.Source = SourceFile
			default:
				return fmt.Errorf("probe: unknown source: %s", s)
			}
		case "cells":
			c.Cells, err = parseCells(v)
		default:
			return fmt.Errorf("probe: unknown key: %s", k)
		}

		if err != nil {
			return err
		}
	}

	// The default timeout shrinks to fit a short interval. An explicit one
	// is checked in validate.
	if _, ok := data["timeout"]; !ok && c.Timeout > c.Interval {
		c.Timeout = c.Interval
	}

	return nil
}

func parseCells(v interface{}) ([]signal.Sample, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("probe: cells must be a list")
	}

	cells := make([]signal.Sample, 0, len(list))

	for i, item := range list {
		data, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("probe: cell %d must be a map", i)
		}

		cell, err := ParseCell(data)
		if err != nil {
			return nil, fmt.Errorf("probe: cell %d: %w", i, err)
		}

		cells = append(cells, cell)
	}

	return cells, nil
}

// ParseCell decodes one cell record: type, registered, rsrp and sinr. It's
// shared with the file source, which reads the same records.
func ParseCell(data map[string]interface{}) (signal.Sample, error) {
	var s signal.Sample

	for k, v := range data {
		var err error

		switch k {
		case "type":
			var name string
			name, err = stringValue("cell", k, v)
			s.Technology = signal.ParseTechnology(name)
		case "registered":
			s.Registered, err = boolValue("cell", k, v)
		case "rsrp":
			s.RSRP, err = intValue("cell", k, v, -200, 0)
		case "sinr":
			s.SINR, err = intValue("cell", k, v, -50, 60)
		default:
			return signal.Sample{}, fmt.Errorf("unknown key: %s", k)
		}

		if err != nil {
			return signal.Sample{}, err
		}
	}

	if s.Technology == signal.TechUnavailable {
		return signal.Sample{}, fmt.Errorf("missing or unavailable type")
	}

	return s, nil
}

func parseMetricsConfig(c *MetricsConfig, data map[string]interface{}) error {
	for k, v := range data {
		switch k {
		case "listen":
			s, err := stringValue("metrics", k, v)
			if err != nil {
				return err
			}

			c.Listen = s
		default:
			return fmt.Errorf("metrics: unknown key: %s", k)
		}
	}

	return nil
}

func parseLogConfig(c *LogConfig, data map[string]interface{}) error {
	for k, v := range data {
		s, err := stringValue("log", k, v)
		if err != nil {
			return err
		}

		switch k {
		case "level":
			switch s {
			case "debug", "info", "warn", "error":
			default:
				return fmt.Errorf("log: unknown level: %s", s)
			}

			c.Level = s
		case "format":
			if s != "console" && s != "json" {
				return fmt.Errorf("log: unknown format: %s", s)
			}

			c.Format = s
		case "file":
			c.File = s
		default:
			return fmt.Errorf("log: unknown key: %s", k)
		}
	}

	return nil
}

func stringValue(section, key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: %s must be a string", section, key)
	}

	return s, nil
}

func boolValue(section, key string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s: %s must be a boolean", section, key)
	}

	return b, nil
}

func intValue(section, key string, v interface{}, min, max int) (int, error) {
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%s: %s must be an integer", section, key)
	}

	if n < min {
		return 0, fmt.Errorf("%s: %s too small: %d", section, key, n)
	} else if n > max {
		return 0, fmt.Errorf("%s: %s too big: %d", section, key, n)
	}

	return n, nil
}

// durationValue accepts a Go duration string ("30s", "1m") or a whole
// number of seconds.
func durationValue(section, key string, v interface{}) (time.Duration, error) {
	var d time.Duration

	switch v := v.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid %s: %s", section, key, err)
		}

		d = parsed
	case int:
		d = time.Duration(v) * time.Second
	default:
		return 0, fmt.Errorf("%s: %s must be a duration", section, key)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%s: %s must be positive: %s", section, key, d)
	}

	return d, nil
}
