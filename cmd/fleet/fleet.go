// Package fleetcmder
package fleetcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/fleet/cmd/fleet/chat"
	configcmder "github.com/papercomputeco/fleet/cmd/fleet/config"
	replaycmder "github.com/papercomputeco/fleet/cmd/fleet/replay"
	transcriptscmder "github.com/papercomputeco/fleet/cmd/fleet/transcripts"
	versioncmder "github.com/papercomputeco/fleet/cmd/fleet/version"
)

const fleetLongDesc string = `Fleet streams chat replies from the fleet chat backend.

Chat with the backend and inspect what was streamed:
  fleet chat                 Start an interactive chat session
  fleet transcripts list     List recorded stream sessions
  fleet replay               Serve recorded sessions as a chat backend
  fleet config list          Show the persistent configuration`

const fleetShortDesc string = "Fleet - Streaming chat client"

func NewFleetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "fleet",
		Short:        fleetShortDesc,
		Long:         fleetLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .fleet/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(transcriptscmder.NewTranscriptsCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
