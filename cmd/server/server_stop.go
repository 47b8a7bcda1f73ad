package main

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

func (s *SupervisorServiceServer) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.logger.Info("stopping server", logging.OperatorKey, operatorOf(ctx))
	s.sup.Stop()

	return statusResponse(s.sup.Status())
}

func (s *SupervisorServiceServer) Restart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger := s.logger.With(logging.OperatorKey, operatorOf(ctx))
	logger.Info("restarting server")

	if err := s.sup.Restart(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("restart failed", "error", err)
		return nil, toStatusError(err)
	}

	return statusResponse(s.sup.Status())
}
