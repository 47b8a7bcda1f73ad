package main

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

func (s *SupervisorServiceServer) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger := s.logger.With(logging.OperatorKey, operatorOf(ctx))
	logger.Info("starting server")

	// A disconnecting caller must not abort a download half way.
	if err := s.sup.Start(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("start failed", "error", err)
		return nil, toStatusError(err)
	}

	return statusResponse(s.sup.Status())
}
