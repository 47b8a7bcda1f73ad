package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/emptypb"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
)

func newConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Follow the server console and lifecycle events from the retained backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			conn, err := dial(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			client := apiv1.NewSupervisorServiceClient(conn)
			stream, err := client.StreamEvents(ctx, &emptypb.Empty{})
			if err != nil {
				return describeRPCError(err)
			}
			for {
				msg, err := stream.Recv()
				if errors.Is(err, io.EOF) || grpcCode(err) == codes.Canceled {
					return nil
				}
				if err != nil {
					return err
				}

				event, err := apiv1.EventFromProto(msg)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(os.Stdout, renderEvent(event)); err != nil {
					return err
				}
			}
		},
	}
	return cmd
}
