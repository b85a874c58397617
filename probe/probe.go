// Package probe turns live radio state into transport parameters.
//
// Polling the radio can be slow or fail; Prober does it on its own schedule
// and publishes the latest Report, so readers never wait on the platform.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minizivpn/tunneld/signal"
	"github.com/minizivpn/tunneld/transport"
)

// Fallback says why a poll produced signal.Unavailable instead of a real
// sample.
type Fallback int

const (
	FallbackNone Fallback = iota
	FallbackPermission
	FallbackError
	FallbackEmpty
)

func (f Fallback) String() string {
	switch f {
	case FallbackNone:
		return "none"
	case FallbackPermission:
		return "permission"
	case FallbackError:
		return "error"
	case FallbackEmpty:
		return "empty"
	default:
		return fmt.Sprintf("unknown fallback: %d", int(f))
	}
}

type Acquisition struct {
	Sample   signal.Sample
	Fallback Fallback
	// Cause is the source error behind FallbackPermission or FallbackError.
	Cause error
}

// Acquire reads the cells from src and picks the one to score: the first
// registered (serving) cell, or the first cell if none is registered. Any
// failure results in signal.Unavailable. Acquire always returns a usable
// sample.
func Acquire(ctx context.Context, src Source) Acquisition {
	cells, err := src.Cells(ctx)
	if errors.Is(err, ErrPermissionDenied) {
		return Acquisition{Sample: signal.Unavailable, Fallback: FallbackPermission, Cause: err}
	} else if err != nil {
		return Acquisition{Sample: signal.Unavailable, Fallback: FallbackError, Cause: err}
	}

	if len(cells) == 0 {
		return Acquisition{Sample: signal.Unavailable, Fallback: FallbackEmpty}
	}

	for _, c := range cells {
		if c.Registered {
			return Acquisition{Sample: c}
		}
	}

	return Acquisition{Sample: cells[0]}
}

// Report is what the tunnel transport consumes.
type Report struct {
	Sample    signal.Sample
	Score     signal.Score
	Transport transport.Config
	At        time.Time
}

// Evaluate scores s and selects the matching transport config. At is left
// zero.
func Evaluate(s signal.Sample) Report {
	score := signal.ScoreSample(s)

	return Report{
		Sample:    s,
		Score:     score,
		Transport: transport.Select(score),
	}
}
