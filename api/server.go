package api

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/minizivpn/tunneld/config"
	"github.com/minizivpn/tunneld/metrics"
	"github.com/minizivpn/tunneld/probe"
	"github.com/minizivpn/tunneld/route"
	"github.com/minizivpn/tunneld/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// How long GracefulStop may wait for watchers before they're cut off.
const stopGracePeriod = 5 * time.Second

// Reports is the latest-value view of the prober.
type Reports interface {
	LastChange() (probe.Report, int64)
	AwaitChange(ctx context.Context, seq int64) (probe.Report, int64)
}

type Server struct {
	configs *config.Manager
	reports Reports
	routes  *expirable.LRU[string, route.Set]

	shutdown context.CancelFunc
	version  string

	// stopping is cancelled when Serve begins to stop. GracefulStop leaves
	// stream contexts alone, so watch streams end on this.
	stopping context.Context
	stop     context.CancelFunc

	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewServer(configs *config.Manager, reports Reports, shutdown context.CancelFunc, version string, log *zap.Logger, m *metrics.Metrics) *Server {
	conf := configs.Current()
	stopping, stop := context.WithCancel(context.Background())

	return &Server{
		configs:  configs,
		reports:  reports,
		routes:   expirable.NewLRU[string, route.Set](conf.Routes.CacheSize, nil, conf.Routes.CacheTTL),
		shutdown: shutdown,
		version:  version,
		stopping: stopping,
		stop:     stop,
		log:      log,
		metrics:  m,
	}
}

// Run serves the API on the unix socket at path until ctx is done. A stale
// socket left by a previous run is removed first.
func (s *Server) Run(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return err
	}

	s.log.Info("api listening", zap.String("socket", path))

	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	grpcServer := grpc.NewServer()
	rpcServer := rpc.NewAPIServer(s)

	rpc.RegisterAPIServer(grpcServer, rpcServer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return grpcServer.Serve(listener)
	})

	g.Go(func() error {
		<-ctx.Done()
		s.stop()

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(stopGracePeriod):
			grpcServer.Stop()
		}

		return nil
	})

	return g.Wait()
}

func (s *Server) GetVersion(ctx context.Context) (string, error) {
	return s.version, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutdown requested over api")
	s.shutdown()
	return nil
}

// GetRoutes serves from the cache when it can. RouteFallback counts
// computations that fell back, so an invalid address served from the cache
// isn't counted again.
func (s *Server) GetRoutes(ctx context.Context, addr string) (route.Set, error) {
	if addr == "" {
		addr = s.configs.Current().Routes.Exclude
	}

	if set, ok := s.routes.Get(addr); ok {
		return set, nil
	}

	if _, ok := route.ParseAddr(addr); !ok {
		s.log.Warn("cannot exclude invalid address, routing everything", zap.String("addr", addr))
		s.metrics.RouteFallback()
	}

	set := route.Exclude(addr)
	s.routes.Add(addr, set)

	return set, nil
}

func (s *Server) GetTransport(ctx context.Context) (probe.Report, error) {
	r, _ := s.reports.LastChange()
	return r, nil
}

// WatchTransport returns nil once the stream's ctx is done or the server
// is stopping.
func (s *Server) WatchTransport(ctx context.Context, send func(probe.Report) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unregister := context.AfterFunc(s.stopping, cancel)
	defer unregister()

	r, seq := s.reports.LastChange()

	for {
		if err := send(r); err != nil {
			return err
		}

		r, seq = s.reports.AwaitChange(ctx, seq)
		if ctx.Err() != nil {
			return nil
		}
	}
}
