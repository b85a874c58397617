package probe

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/minizivpn/tunneld/metrics"
	"github.com/minizivpn/tunneld/signal"
	"github.com/minizivpn/tunneld/sync"
	"go.uber.org/zap"
)

type Prober struct {
	*sync.Notifier[Report]

	source   Source
	interval time.Duration
	timeout  time.Duration

	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Prober)

func WithClock(c clock.Clock) Option {
	return func(p *Prober) {
		p.clock = c
	}
}

// WithTimeout bounds each poll of the source. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.timeout = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Prober) {
		p.metrics = m
	}
}

// NewProber returns a Prober that polls source every interval once Run is
// called. Until the first poll the latest report is the neutral one for an
// unavailable sample.
func NewProber(source Source, interval time.Duration, log *zap.Logger, opts ...Option) *Prober {
	p := &Prober{
		Notifier: sync.NewNotifier(Evaluate(signal.Unavailable)),
		source:   source,
		interval: interval,
		clock:    clock.New(),
		log:      log,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run polls immediately and then once per interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	t := p.clock.Ticker(p.interval)
	defer t.Stop()

	p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p.Poll(ctx)
		}
	}
}

// Poll takes one sample, publishes the resulting report and returns it.
func (p *Prober) Poll(ctx context.Context) Report {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = p.clock.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	a := Acquire(ctx, p.source)

	r := Evaluate(a.Sample)
	r.At = p.clock.Now()

	if a.Fallback != FallbackNone {
		p.log.Warn("cell info unavailable, using neutral score",
			zap.Stringer("reason", a.Fallback),
			zap.Error(a.Cause),
		)
		p.metrics.ProbeFallback(a.Fallback.String())
	}

	p.log.Debug("link probed",
		zap.Stringer("technology", r.Sample.Technology),
		zap.Int("rsrp", r.Sample.RSRP),
		zap.Int("sinr", r.Sample.SINR),
		zap.Int("score", int(r.Score)),
		zap.Stringer("mode", r.Transport.Mode),
	)

	p.metrics.ObserveTransport(r.Score, r.Transport)
	p.NotifyChange(r)

	return r
}
