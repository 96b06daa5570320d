package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"pathserver/common"
	"pathserver/config"
	"pathserver/connection"
	"pathserver/metrics"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
	"github.com/xtaci/smux"
)

type Config struct {
	Transport  string
	MaxWorkers int
}

// Server accepts connections and dispatches each one, or each smux stream,
// to a Handler running on a bounded goroutine pool. When every worker is
// busy the accept loop waits for a free one, leaving further clients in the
// kernel backlog. All handlers are tracked so Shutdown can drain them.
type Server struct {
	listener net.Listener
	handler  *Handler
	pool     *ants.Pool
	config   Config
	metrics  *metrics.Metrics

	handlers sync.WaitGroup
	sessions sync.WaitGroup

	mu          sync.Mutex
	openSession map[*smux.Session]struct{}
	closed      atomic.Bool
}

func New(listener net.Listener, handler *Handler, cfg Config, m *metrics.Metrics) (*Server, error) {
	if cfg.Transport == "" {
		cfg.Transport = config.TransportTCP
	}
	if cfg.Transport != config.TransportTCP && cfg.Transport != config.TransportSmux {
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	pool, err := common.NewPool(common.PoolConfig{MaxWorkers: cfg.MaxWorkers})
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:    listener,
		handler:     handler,
		pool:        pool,
		config:      cfg,
		metrics:     m,
		openSession: make(map[*smux.Session]struct{}),
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve runs the accept loop until Shutdown, then returns ErrServerClosed.
// Accept failures are logged and the loop keeps going.
func (s *Server) Serve() error {
	log.Infof("serving path queries on %v, transport: %s, max workers: %d",
		s.listener.Addr(), s.config.Transport, s.config.MaxWorkers)

	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			s.metrics.AcceptError()
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			log.Warnf("accept failed, retrying in %v, err: %v", backoff, err)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if s.config.Transport == config.TransportSmux {
			s.serveSession(conn)
			continue
		}
		s.dispatch(conn)
	}
}

// dispatch blocks until a worker is free
func (s *Server) dispatch(conn net.Conn) {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.handlers.Add(1)
	s.mu.Unlock()

	err := s.pool.Submit(func() {
		defer s.handlers.Done()
		s.handler.Serve(conn)
	})
	if err != nil {
		s.handlers.Done()
		log.Warnf("dispatch connection from %v failed, err: %v", conn.RemoteAddr(), err)
		conn.Close()
	}
}

// serveSession accepts streams from one smux session; each stream carries a
// single exchange. Session loops run outside the pool so that waiting for
// streams never holds a worker.
func (s *Server) serveSession(conn net.Conn) {
	session, err := connection.NewServerSession(conn)
	if err != nil {
		log.Warnf("smux session from %v failed, err: %v", conn.RemoteAddr(), err)
		return
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		session.Close()
		return
	}
	s.openSession[session] = struct{}{}
	s.sessions.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.sessions.Done()
		defer func() {
			s.mu.Lock()
			delete(s.openSession, session)
			s.mu.Unlock()
			session.Close()
		}()

		log.Debugf("smux session opened, remote: %v", session.RemoteAddr())
		for {
			stream, err := session.AcceptStream()
			if err != nil {
				if !session.IsClosed() {
					log.Debugf("smux session from %v ended, err: %v", session.RemoteAddr(), err)
				}
				return
			}
			s.dispatch(stream)
		}
	}()
}

// Shutdown stops accepting, waits for in-flight handlers, then closes smux
// sessions and releases the pool. If ctx ends first, sessions are closed
// immediately and ctx's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return nil
	}
	s.closed.Store(true)
	s.mu.Unlock()
	log.Infof("shutting down path server on %v", s.listener.Addr())

	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warnf("close listener failed, err: %v", err)
	}

	drainErr := wait(ctx, &s.handlers)

	s.mu.Lock()
	for session := range s.openSession {
		session.Close()
	}
	s.mu.Unlock()

	if err := wait(ctx, &s.sessions); err != nil && drainErr == nil {
		drainErr = err
	}
	s.pool.Release()

	if drainErr != nil {
		log.Warnf("shutdown did not drain all handlers, err: %v", drainErr)
		return drainErr
	}
	log.Infof("path server stopped")
	return nil
}

func wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
