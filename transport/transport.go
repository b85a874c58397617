// Package transport picks tunnel buffer and connection-pool sizes for a
// given link quality score.
package transport

import (
	"fmt"
	"strings"

	"github.com/minizivpn/tunneld/signal"
)

type Mode int

const (
	ModeLatency Mode = iota
	ModeBalanced
	ModeThroughput
)

func (m Mode) String() string {
	switch m {
	case ModeLatency:
		return "latency"
	case ModeBalanced:
		return "balanced"
	case ModeThroughput:
		return "throughput"
	default:
		return fmt.Sprintf("unknown mode: %d", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "latency":
		return ModeLatency, nil
	case "balanced":
		return ModeBalanced, nil
	case "throughput":
		return ModeThroughput, nil
	default:
		return 0, fmt.Errorf("unknown transport mode: %q", s)
	}
}

type Config struct {
	Mode           Mode
	ReceiveWindow  int
	MaxConnections int
}

func (c Config) String() string {
	return fmt.Sprintf("%s (receive window %d, max connections %d)", c.Mode, c.ReceiveWindow, c.MaxConnections)
}

var (
	Throughput = Config{Mode: ModeThroughput, ReceiveWindow: 655360, MaxConnections: 262144}
	Balanced   = Config{Mode: ModeBalanced, ReceiveWindow: 327680, MaxConnections: 131072}
	Latency    = Config{Mode: ModeLatency, ReceiveWindow: 163840, MaxConnections: 65536}
)

// Evaluated top down; the first tier whose minimum the score reaches wins.
var tiers = []struct {
	min    signal.Score
	config Config
}{
	{min: 80, config: Throughput},
	{min: 50, config: Balanced},
}

// Select maps a score to its transport config. Scores below every tier get
// the conservative Latency config.
func Select(score signal.Score) Config {
	for _, t := range tiers {
		if score >= t.min {
			return t.config
		}
	}

	return Latency
}
