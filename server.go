package mockhost

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

var ErrServerStarted = errors.New("server already started")

// ServerConf holds the settings a Server is created with.
type ServerConf struct {
	// MaxConnections is the number of workers, and so the number of
	// connections handled at the same time.
	MaxConnections int

	// ReadTimeout bounds reading a request. Zero means reads never time out
	// and a silent peer holds its worker until it disconnects.
	ReadTimeout time.Duration

	// MaxBodyBytes caps the Content-Length accepted for POST and PUT bodies.
	// Zero means no limit.
	MaxBodyBytes int64

	// Serialize handles one connection at a time across the whole pool, from
	// decoding to the written response. It exists to reproduce the behaviour
	// of servers that kept the route table behind a single lock.
	Serialize bool

	Logger  log.Logger
	Metrics *Metrics
}

// Server owns the registered listeners and dispatches every accepted
// connection to them through a worker pool.
type Server struct {
	conf   ServerConf
	logger log.Logger

	// NotFoundHandler answers requests no listener accepts. It defaults to
	// NotFound().
	NotFoundHandler HandlerFunc

	mu        sync.Mutex
	listeners []Listener
	started   bool

	serial sync.Mutex
}

func NewServer(conf ServerConf) *Server {
	logger := conf.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Server{
		conf:   conf,
		logger: logger,
	}
}

// Register appends a listener. Listeners are tried in registration order and
// the first one that accepts a request handles it. Registering after Serve
// has started panics.
func (s *Server) Register(method HTTPMethod, pattern PathPattern, handler HandlerFunc) {
	if handler == nil {
		panic("mockhost: nil handler for " + pattern.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		panic(fmt.Sprintf("mockhost: register %s %s: %v", method, pattern, ErrServerStarted))
	}

	s.listeners = append(s.listeners, Listener{
		Method:  HTTPMethod(strings.ToUpper(string(method))),
		Pattern: pattern,
		Handler: handler,
	})
}

func (s *Server) Get(path string, handler HandlerFunc) {
	s.Register(GET, Exact(path), handler)
}

func (s *Server) Post(path string, handler HandlerFunc) {
	s.Register(POST, Exact(path), handler)
}

func (s *Server) Put(path string, handler HandlerFunc) {
	s.Register(PUT, Exact(path), handler)
}

func (s *Server) Delete(path string, handler HandlerFunc) {
	s.Register(DELETE, Exact(path), handler)
}

// Request registers handler for an arbitrary method and pattern.
func (s *Server) Request(handler HandlerFunc, opt RequestOption) {
	s.Register(opt.Method, opt.Path, handler)
}

// Routes returns the registered listeners in registration order.
func (s *Server) Routes() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Listener(nil), s.listeners...)
}

func (s *Server) freeze() (*RouteTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil, ErrServerStarted
	}
	s.started = true
	return newRouteTable(s.listeners), nil
}

// Listen binds addr and serves until ctx is cancelled. A bind failure ends
// the process.
func (s *Server) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		level.Error(s.logger).Log("event", "unable to bind", "address", addr, "detail", err.Error())
		os.Exit(1)
	}
	return s.Serve(ctx, ln)
}

// ListenAndServe is Listen without the process exit: bind errors are
// returned.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and submits one job per connection to a
// pool of MaxConnections workers. When ctx is cancelled the listener is
// closed, queued connections are still answered, and Serve returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	table, err := s.freeze()
	if err != nil {
		ln.Close()
		return err
	}

	pool := NewWorkerPool(s.conf.MaxConnections,
		WithPoolLogger(log.With(s.logger, "component", "pool")),
		WithPoolMetrics(s.conf.Metrics),
	)
	defer pool.Shutdown()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stop:
		}
	}()

	level.Info(s.logger).Log("event", "server listening", "address", ln.Addr().String(),
		"workers", pool.Size(), "routes", table.Len())

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				level.Info(s.logger).Log("event", "server stopped", "address", ln.Addr().String())
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			delay = nextAcceptDelay(delay)
			level.Warn(s.logger).Log("event", "accept failed", "retry_in", delay, "detail", err.Error())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
			continue
		}
		delay = 0

		if err := pool.Submit(func() { s.handleConnection(table, conn) }); err != nil {
			conn.Close()
			return err
		}
	}
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// nextAcceptDelay doubles the wait after each consecutive accept failure.
func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	if d *= 2; d > maxAcceptDelay {
		d = maxAcceptDelay
	}
	return d
}

// handleConnection runs on a worker: decode, dispatch, write, close.
func (s *Server) handleConnection(table *RouteTable, conn net.Conn) {
	defer conn.Close()

	if s.conf.Serialize {
		s.serial.Lock()
		defer s.serial.Unlock()
	}

	if s.conf.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.conf.ReadTimeout))
	}

	req, err := DecodeRequest(conn, DecodeOptions{MaxBodyBytes: s.conf.MaxBodyBytes})
	if err != nil {
		level.Debug(s.logger).Log("event", "dropping connection", "remote", conn.RemoteAddr().String(),
			"detail", err.Error())
		s.conf.Metrics.connectionDropped("decode")
		return
	}
	req.RemoteAddr = conn.RemoteAddr().String()

	start := time.Now()
	resp := s.dispatch(table, req)

	if _, err := resp.WriteTo(conn); err != nil {
		level.Warn(s.logger).Log("event", "write failed", "conn_id", req.ID, "detail", err.Error())
		s.conf.Metrics.connectionDropped("write")
		return
	}

	elapsed := time.Since(start)
	s.conf.Metrics.requestServed(req.Method, resp.Status, elapsed.Seconds())
	level.Debug(s.logger).Log("event", "request served", "conn_id", req.ID, "method", req.Method,
		"path", req.Path, "status", resp.Status, "elapsed", elapsed)
}

func (s *Server) dispatch(table *RouteTable, req *Request) *Response {
	handler := s.NotFoundHandler
	if handler == nil {
		handler = func(*Request) *Response { return NotFound() }
	}

	if l, rp, ok := table.Find(req.Method, req.Path); ok {
		req.apply(rp)
		handler = l.Handler
	}

	resp := handler(req)
	if resp == nil {
		level.Warn(s.logger).Log("event", "handler returned no response", "conn_id", req.ID,
			"method", req.Method, "path", req.Path)
		resp = Text(http.StatusInternalServerError, "")
	}
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	return resp
}
