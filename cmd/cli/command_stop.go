package main

import (
	"time"

	"github.com/spf13/cobra"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
)

func newStopCmd() *cobra.Command {
	return newControlCmd("stop", "Stop the game server gracefully", 15*time.Second, apiv1.SupervisorServiceClient.Stop)
}
