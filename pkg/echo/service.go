package echo

import (
	"context"
	"fmt"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/logging"
	"github.com/coactor/machine/pkg/netcore"
	"github.com/coactor/machine/pkg/service"
)

// Service gates the echo server's command surface behind a lifecycle
// StateMachine: Start brings NetCore up and transitions Init->Started,
// Listen (only meaningful once Running) binds the TCP listener, Drain
// stops accepting new traffic without tearing down existing connections,
// and Stop closes NetCore and every connection it still owns.
type Service struct {
	pool       *concurrency.ExecutorPool
	core       *netcore.NetCore
	controller *Controller
	lifecycle  *service.StateMachine
	logger     logging.Logger
}

// NewService constructs an unstarted echo Service backed by pool.
func NewService(pool *concurrency.ExecutorPool, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		pool:      pool,
		core:      netcore.New(logger),
		lifecycle: service.New(nil),
		logger:    logger,
	}
}

// Start transitions Init->Started->Running and brings NetCore up. It does
// not yet bind a listener; call Listen once Start returns.
func (s *Service) Start() error {
	if err := s.lifecycle.Start(); err != nil {
		return fmt.Errorf("echo: start: %w", err)
	}
	s.core.Start(s.pool.GetExecutor())
	if err := s.lifecycle.Run(); err != nil {
		return fmt.Errorf("echo: run: %w", err)
	}
	s.controller = NewController(s.pool, s.core.GetSender())
	return nil
}

// Listen binds a TCP listener at addr. It only succeeds once the service
// has reached Running; every command this package exposes is gated the
// same way, so a listener can never be bound before NetCore is actually up
// nor after the service has begun draining.
func (s *Service) Listen(ctx context.Context, addr string) error {
	if s.lifecycle.Current() != service.StateRunning {
		return fmt.Errorf("echo: cannot listen in state %s", s.lifecycle.Current())
	}
	return s.controller.Bind(ctx, addr)
}

// Drain transitions Running->Draining and tells the Controller to refuse
// every connection accepted from here on; connections already bound are
// left running untouched, and no new Listen calls are accepted afterward.
func (s *Service) Drain() error {
	if err := s.lifecycle.Drain(); err != nil {
		return fmt.Errorf("echo: drain: %w", err)
	}
	s.controller.SetDraining(true)
	return nil
}

// Stop transitions to Stopped and closes NetCore, tearing down every
// listener and connection it still owns.
func (s *Service) Stop() error {
	if err := s.lifecycle.Stop(); err != nil {
		return fmt.Errorf("echo: stop: %w", err)
	}
	s.core.Stop()
	return nil
}

// State reports the service's current lifecycle state.
func (s *Service) State() service.State { return s.lifecycle.Current() }

// ConnCount reports the number of live connections netcore currently owns.
func (s *Service) ConnCount() int { return s.core.ConnCount() }

// TrafficStats reports cumulative bytes received from and sent to clients.
func (s *Service) TrafficStats() (recv, sent int64) { return s.core.TrafficStats() }

// Events returns the connection lifecycle feed for the admin diagnostic
// stream. Only valid once Start has returned.
func (s *Service) Events() <-chan ConnEvent { return s.controller.Events() }

// IsDrained reports whether every connection has closed, the condition the
// supplemented feature set calls for after Drain.
func (s *Service) IsDrained() bool { return s.ConnCount() == 0 }
