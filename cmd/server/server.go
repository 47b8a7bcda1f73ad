package main

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/supervisor"
)

// Controller is the part of the supervisor the gRPC surface drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Restart(ctx context.Context) error
	SendCommand(text string) error
	Status() lib.Status
	Subscribe(ctx context.Context, capacity int) <-chan lib.Event
}

var _ Controller = (*supervisor.Supervisor)(nil)

type SupervisorServiceServer struct {
	apiv1.UnimplementedSupervisorServiceServer
	sup    Controller
	logger *slog.Logger

	// operators admitted to control methods; empty admits everyone.
	operators map[string]struct{}

	commandRate  rate.Limit
	commandBurst int
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
}

func NewSupervisorServiceServer(sup Controller, auth config.AuthConfig, logger *slog.Logger) *SupervisorServiceServer {
	operators := make(map[string]struct{}, len(auth.AllowedOperators))
	for _, id := range auth.AllowedOperators {
		operators[id] = struct{}{}
	}

	limit := rate.Limit(auth.CommandRate)
	if auth.CommandRate <= 0 {
		limit = rate.Inf
	}

	return &SupervisorServiceServer{
		sup:          sup,
		logger:       logger,
		operators:    operators,
		commandRate:  limit,
		commandBurst: auth.CommandBurst,
		limiters:     make(map[string]*rate.Limiter),
	}
}

// limiter returns the command limiter of one operator, creating it on first
// use.
func (s *SupervisorServiceServer) limiter(operator string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[operator]
	if !ok {
		l = rate.NewLimiter(s.commandRate, s.commandBurst)
		s.limiters[operator] = l
	}
	return l
}
