package main

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *SupervisorServiceServer) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return statusResponse(s.sup.Status())
}
