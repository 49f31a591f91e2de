// Package replaycmder provides the replay command, serving recorded stream
// sessions as a chat backend.
package replaycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fleet/cmd/fleet/backends"
	"github.com/papercomputeco/fleet/pkg/cliui"
	"github.com/papercomputeco/fleet/pkg/config"
	"github.com/papercomputeco/fleet/pkg/logger"
	"github.com/papercomputeco/fleet/pkg/replay"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

type replayCommander struct {
	listen      string
	provider    string
	sqlitePath  string
	postgresDSN string
	redisURL    string
	frameDelay  time.Duration
	logFile     string
	logFormat   string
	errOut      io.Writer
	debug       bool
	configDir   string

	logger *slog.Logger
}

const replayLongDesc string = `Serve recorded stream sessions as a chat backend.

The replay server answers POST /api/chat/stream and /api/chat/regenerate with
the events of the latest recorded session of the requested conversation,
framed exactly as the chat backend frames them and terminated by
"data: [DONE]". A message without a conversation replays the latest session
recorded. Point "fleet chat --target" at it for offline demos.

Examples:
  fleet replay
  fleet replay --listen :9000 --frame-delay 30ms
  fleet replay --log-file replay.log`

const replayShortDesc string = "Serve recorded stream sessions as a chat backend"

var replayFlags = []string{
	config.FlagReplayListen,
	config.FlagTranscriptsProvider,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagRedis,
}

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.errOut = cmd.ErrOrStderr()

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, replayFlags)
			cmder.listen = v.GetString("replay.listen")

			closeLog, err := cmder.initLogger()
			if err != nil {
				return err
			}
			defer closeLog()

			var driver transcript.Driver
			err = cliui.Step(cmder.errOut, "Opening transcript store", func() error {
				driver, err = backends.NewTranscriptDriver(cmd.Context(), v, cmder.configDir, cmder.logger)
				return err
			})
			if err != nil {
				return err
			}
			defer driver.Close()

			ln, err := net.Listen("tcp", cmder.listen)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cmder.listen, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.serve(ctx, driver, ln)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagReplayListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagTranscriptsProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagRedis, &cmder.redisURL)
	cmd.Flags().DurationVar(&cmder.frameDelay, "frame-delay", 0, "Delay between replayed frames")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().StringVar(&cmder.logFormat, "log-format", string(logger.FormatPretty), "Console log format: text, json or pretty")

	return cmd
}

// initLogger logs to stderr in --log-format and, with --log-file, as JSON to
// the file too.
func (c *replayCommander) initLogger() (func(), error) {
	format, err := logger.ParseFormat(c.logFormat)
	if err != nil {
		return nil, err
	}

	errOut := c.errOut
	if errOut == nil {
		errOut = os.Stderr
	}

	console := logger.New(logger.WithDebug(c.debug), logger.WithFormat(format), logger.WithWriter(errOut))
	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(logger.WithDebug(c.debug), logger.WithFormat(logger.FormatJSON), logger.WithWriter(f))
	c.logger = logger.Multi(console, file)

	return func() { _ = f.Close() }, nil
}

// serve runs the replay server on ln until ctx is done.
func (c *replayCommander) serve(ctx context.Context, driver transcript.Driver, ln net.Listener) error {
	if c.logger == nil {
		c.logger = logger.Nop()
	}

	server := replay.NewServer(replay.Config{
		ListenAddr: ln.Addr().String(),
		FrameDelay: c.frameDelay,
	}, driver, c.logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("replay server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		c.logger.Info("shutting down replay server")
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("shutting down replay server: %w", err)
		}
		return nil
	}
}
