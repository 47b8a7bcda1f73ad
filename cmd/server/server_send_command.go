package main

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

func (s *SupervisorServiceServer) SendCommand(ctx context.Context, request *wrapperspb.StringValue) (*emptypb.Empty, error) {
	operator := operatorOf(ctx)

	if !s.limiter(operator).Allow() {
		return nil, status.Error(codes.ResourceExhausted, "command rate limit exceeded")
	}

	if err := s.sup.SendCommand(request.GetValue()); err != nil {
		s.logger.Debug("command rejected", logging.OperatorKey, operator, "error", err)
		return nil, toStatusError(err)
	}

	s.logger.Info("command sent", logging.OperatorKey, operator, "command", request.GetValue())
	return &emptypb.Empty{}, nil
}
