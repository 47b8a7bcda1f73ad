package main

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
)

const streamCapacity = 256

// StreamEvents replays the retained backlog, then follows live events until
// the client goes away or the supervisor shuts down.
func (s *SupervisorServiceServer) StreamEvents(_ *emptypb.Empty, streaming grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := streaming.Context()
	events := s.sup.Subscribe(ctx, streamCapacity)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			msg, err := apiv1.EventToProto(event)
			if err != nil {
				return status.Errorf(codes.Internal, "encoding event: %v", err)
			}
			if err := streaming.Send(msg); err != nil {
				return err
			}
		}
	}
}
