package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/server/endpoint"
	"github.com/kbukum/demandflow/server/middleware"
)

// shutdownGrace caps how long Stop waits for in-flight requests.
const shutdownGrace = 5 * time.Second

// Server serves the status endpoints. Requests pass through the middleware
// chain before reaching Gin, and cleartext HTTP/2 is accepted alongside
// HTTP/1.1.
type Server struct {
	config Config
	log    *logger.Logger
	engine *gin.Engine
	http   *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New builds the server without binding. Gin runs in debug mode only when
// the log level is debug.
func New(cfg Config, log *logger.Logger) *Server {
	mode := gin.ReleaseMode
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	log = log.WithComponent("server")
	engine := gin.New()
	handler := middleware.Chain(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.RequestLogger(log),
	)(engine)

	return &Server{
		config: cfg,
		log:    log,
		engine: engine,
		http: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      h2c.NewHandler(handler, &http2.Server{IdleTimeout: cfg.IdleTimeout}),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Handler is the full chain, for serving without a listener in tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start returns once the port is bound; requests are served in the
// background until Stop.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return errors.ConnectionFailed("status server").WithCause(err).WithDetail("addr", s.http.Addr)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.http.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server stopped serving", logger.MergeWithError(nil, err))
		}
	}()
	s.log.Info("status server listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "status server shutdown")
	}
	s.log.Info("status server stopped")
	return nil
}

// Addr is the bound address after Start and the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.http.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// RegisterStatusEndpoints mounts /healthz, /progress and /version. Unknown
// paths answer with a NOT_FOUND error body.
func (s *Server) RegisterStatusEndpoints(serviceName string, checker endpoint.HealthChecker, progress endpoint.ProgressFunc, stages endpoint.StagesFunc) {
	s.engine.GET("/healthz", endpoint.Health(serviceName, checker))
	s.engine.GET("/progress", endpoint.Progress(progress, stages))
	s.engine.GET("/version", endpoint.Version())
	s.engine.NoRoute(func(c *gin.Context) {
		RespondWithError(c, errors.NotFound("route", c.Request.URL.Path))
	})
}
