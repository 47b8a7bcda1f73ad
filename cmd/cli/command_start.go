package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
)

// startTimeout covers a first start that has to download the artifact.
const startTimeout = 10 * time.Minute

type controlCall func(apiv1.SupervisorServiceClient, context.Context, *emptypb.Empty, ...grpc.CallOption) (*structpb.Struct, error)

func newStartCmd() *cobra.Command {
	return newControlCmd("start", "Start the game server", startTimeout, apiv1.SupervisorServiceClient.Start)
}

func newRestartCmd() *cobra.Command {
	return newControlCmd("restart", "Restart the game server", startTimeout, apiv1.SupervisorServiceClient.Restart)
}

func newControlCmd(use, short string, timeout time.Duration, call controlCall) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := dial(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := call(apiv1.NewSupervisorServiceClient(conn), ctx, &emptypb.Empty{})
			if err != nil {
				return describeRPCError(err)
			}

			st, err := apiv1.StatusFromProto(resp)
			if err != nil {
				return err
			}
			printStatusTable(os.Stdout, st)
			return nil
		},
	}
	return cmd
}
