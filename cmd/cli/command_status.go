package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/emptypb"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the game server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			conn, err := dial(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			client := apiv1.NewSupervisorServiceClient(conn)
			resp, err := client.Status(ctx, &emptypb.Empty{})
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
