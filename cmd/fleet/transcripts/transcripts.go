// Package transcriptscmder provides the transcripts command for inspecting
// recorded stream sessions.
package transcriptscmder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/fleet/cmd/fleet/backends"
	"github.com/papercomputeco/fleet/pkg/config"
	"github.com/papercomputeco/fleet/pkg/logger"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

const transcriptsLongDesc string = `Inspect recorded stream sessions.

Every finished "fleet chat" session is recorded as a transcript: the events
its handler received, its final state and how many malformed frames were
dropped. Transcripts are stored in the backend selected by
transcripts.provider.

Examples:
  fleet transcripts list
  fleet transcripts list --conversation 3f2a
  fleet transcripts list --follow
  fleet transcripts show <session-id>`

const transcriptsShortDesc string = "Inspect recorded stream sessions"

// storeFlags are the flags selecting the transcript store.
var storeFlags = []string{
	config.FlagTranscriptsProvider,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagRedis,
}

// storeCommander opens the transcript store of a subcommand.
type storeCommander struct {
	provider    string
	sqlitePath  string
	postgresDSN string
	redisURL    string

	v         *viper.Viper
	configDir string
}

func (s *storeCommander) addFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagTranscriptsProvider, &s.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &s.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &s.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagRedis, &s.redisURL)
}

func (s *storeCommander) open(ctx context.Context, cmd *cobra.Command) (transcript.Driver, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, storeFlags)
	s.v = v
	s.configDir = configDir

	l := logger.New(logger.WithDebug(debug), logger.WithPretty(true), logger.WithWriter(cmd.ErrOrStderr()))
	return backends.NewTranscriptDriver(ctx, v, configDir, l.With(slog.String("component", "transcripts")))
}

func NewTranscriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: transcriptsShortDesc,
		Long:  transcriptsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}
