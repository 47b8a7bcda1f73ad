package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <command...>",
		Short: "Send a console command to the game server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			conn, err := dial(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			client := apiv1.NewSupervisorServiceClient(conn)
			if _, err := client.SendCommand(ctx, wrapperspb.String(strings.Join(args, " "))); err != nil {
				return describeRPCError(err)
			}
			return nil
		},
	}
	return cmd
}
