// Package chatcmder provides the chat command for interactive streaming chat
// against the fleet chat backend.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fleet/cmd/fleet/backends"
	"github.com/papercomputeco/fleet/cmd/fleet/render"
	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/cliui"
	"github.com/papercomputeco/fleet/pkg/config"
	"github.com/papercomputeco/fleet/pkg/dotdir"
	"github.com/papercomputeco/fleet/pkg/logger"
	"github.com/papercomputeco/fleet/pkg/utils"
)

var (
	userPrompt      = cliui.PromptStyle.Render("you> ")
	assistantPrompt = cliui.StepStyle.Render("assistant> ")
)

type chatCommander struct {
	target           string
	model            string
	chunkSize        int
	channelBuffer    int
	maxDroppedFrames int
	provider         string
	sqlitePath       string
	postgresDSN      string
	redisURL         string
	esProvider       string
	kafkaBrokers     string
	esTopic          string
	newConversation  bool
	noRecord         bool
	markdown         bool
	debug            bool
	configDir        string

	in          io.Reader
	out         io.Writer
	interactive bool
	interrupts  <-chan os.Signal

	logger *slog.Logger
	client *chatstream.Client
	state  *dotdir.ChatState
	ddm    *dotdir.Manager

	// mu guards the streaming flag and the conversation it streams into.
	mu         sync.Mutex
	streaming  bool
	streamConv string
}

const chatLongDesc string = `Start an interactive streaming chat session with the fleet chat backend.

Replies are streamed as they arrive. Press Ctrl+C while a reply streams to
cancel it; the conversation stays open. Every finished session is recorded as
a transcript (see "fleet transcripts") unless --no-record is set.

The conversation announced by the backend is saved in the .fleet/ directory,
so re-running "fleet chat" resumes it. Use --new to start a fresh one.

Commands:
  /regen    Regenerate the last reply
  /new      Start a new conversation
  /exit     Quit (Ctrl+D works too)

Examples:
  fleet chat
  fleet chat --target http://fleet.internal:8000 --model fleet-large
  fleet chat --new --markdown`

const chatShortDesc string = "Interactive streaming chat with the fleet backend"

var chatFlags = []string{
	config.FlagTarget,
	config.FlagModel,
	config.FlagChunkSize,
	config.FlagChannelBuffer,
	config.FlagMaxDroppedFrames,
	config.FlagTranscriptsProvider,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagRedis,
	config.FlagEventStreamProvider,
	config.FlagKafkaBrokers,
	config.FlagEventStreamTopic,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.interactive = cliui.IsTerminal(cmder.in)

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt)
			defer signal.Stop(sigs)
			cmder.interrupts = sigs

			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagChannelBuffer, &cmder.channelBuffer)
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxDroppedFrames, &cmder.maxDroppedFrames)
	config.AddStringFlag(cmd, config.Flags, config.FlagTranscriptsProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagRedis, &cmder.redisURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamProvider, &cmder.esProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamTopic, &cmder.esTopic)
	cmd.Flags().BoolVar(&cmder.newConversation, "new", false, "Start a new conversation instead of resuming")
	cmd.Flags().BoolVar(&cmder.noRecord, "no-record", false, "Do not record session transcripts")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render each reply as markdown once it finished")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

	c.target = v.GetString("client.target")
	c.model = v.GetString("client.model")
	c.chunkSize = v.GetInt("stream.chunk_size")
	c.channelBuffer = v.GetInt("stream.channel_buffer")
	c.maxDroppedFrames = v.GetInt("stream.max_dropped_frames")

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	)

	opts := []chatstream.ClientOption{
		chatstream.WithClientLogger(c.logger),
		chatstream.WithSessionOptions(
			chatstream.WithChunkSize(c.chunkSize),
			chatstream.WithMaxDroppedFrames(c.maxDroppedFrames),
		),
	}

	if v.GetBool("transcripts.enabled") && !c.noRecord {
		rec, err := backends.NewRecording(ctx, v, c.configDir, c.logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				c.logger.Warn("closing transcript store", "error", err)
			}
		}()
		opts = append(opts, chatstream.WithRecorder(rec.Pool))
	}

	transport := chatstream.NewHTTPTransport(c.target, nil)
	c.client = chatstream.NewClient(transport, opts...)
	defer c.client.Close()

	return c.loop(ctx)
}

// loop reads input lines until /exit or end of input.
func (c *chatCommander) loop(ctx context.Context) error {
	if err := c.loadState(); err != nil {
		return err
	}

	stopInterrupts := c.watchInterrupts()
	defer stopInterrupts()

	c.printBanner()

	scanner := bufio.NewScanner(c.in)
	for {
		if c.interactive {
			fmt.Fprint(c.out, userPrompt)
		}
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue

		case input == "/exit":
			fmt.Fprintln(c.out)
			return nil

		case input == "/new":
			if err := c.ddm.ClearChatState(c.configDir); err != nil {
				return err
			}
			c.state = &dotdir.ChatState{Model: c.model}
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))

		case input == "/regen":
			if c.state.ConversationID == "" || c.state.MessageID == "" {
				fmt.Fprintf(c.out, "  %s nothing to regenerate yet\n\n", cliui.FailMark)
				continue
			}
			c.turn(ctx, chatstream.RegenerateRequest{
				ConversationID: c.state.ConversationID,
				MessageID:      c.state.MessageID,
				Model:          c.model,
			})

		case strings.HasPrefix(input, "/"):
			fmt.Fprintf(c.out, "  %s unknown command %s\n\n", cliui.FailMark, input)

		default:
			c.turn(ctx, chatstream.SendRequest{
				ConversationID: c.state.ConversationID,
				Content:        input,
				Model:          c.model,
			})
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// turn streams one reply and updates the chat state from its events.
func (c *chatCommander) turn(ctx context.Context, b chatstream.RequestBuilder) {
	var (
		reply          strings.Builder
		conversationID string
		messageID      string
		failure        string
	)

	handle := func(ev chatstream.Event) {
		switch ev.Type {
		case chatstream.EventConversation:
			conversationID = render.ConversationID(ev)

		case chatstream.EventDelta:
			text := render.DeltaText(ev)
			reply.WriteString(text)
			if !c.markdown {
				fmt.Fprint(c.out, text)
			}

		case chatstream.EventToolCall:
			fmt.Fprint(c.out, cliui.DimStyle.Render(fmt.Sprintf("[tool: %s]", render.ToolName(ev))))

		case chatstream.EventError:
			failure = ev.Error
		}

		if id := render.MessageID(ev); id != "" {
			messageID = id
		}
	}

	fmt.Fprint(c.out, assistantPrompt)

	c.setStreaming(true, b.Conversation())
	defer c.setStreaming(false, "")

	// Events are rendered on this goroutine so a slow terminal backs up the
	// channel instead of the read loop.
	s, events, err := c.client.Events(ctx, b, c.channelBuffer)
	if err != nil {
		fmt.Fprintf(c.out, "\n  %s %v\n\n", cliui.FailMark, err)
		return
	}
	for ev := range events {
		handle(ev)
	}
	s.Wait()

	if c.markdown && reply.Len() > 0 {
		rendered, err := cliui.RenderMarkdown(reply.String())
		if err != nil {
			c.logger.Debug("rendering reply", "error", err)
		}
		fmt.Fprint(c.out, "\n", rendered)
	}

	switch s.State() {
	case chatstream.StateError:
		fmt.Fprintf(c.out, "\n  %s %s\n\n", cliui.FailMark, cliui.ErrorStyle.Render(failure))
		return

	case chatstream.StateAborted:
		fmt.Fprintf(c.out, "\n  %s %s\n\n", cliui.AbortMark, cliui.DimStyle.Render("cancelled"))

	default:
		fmt.Fprint(c.out, "\n\n")
	}

	if s.Dropped() > 0 {
		c.logger.Debug("malformed frames dropped", "session_id", s.ID(), "dropped", s.Dropped())
	}

	c.updateState(conversationID, messageID)
}

func (c *chatCommander) loadState() error {
	c.ddm = dotdir.NewManager()

	if c.newConversation {
		if err := c.ddm.ClearChatState(c.configDir); err != nil {
			return fmt.Errorf("clearing chat state: %w", err)
		}
	}

	state, err := c.ddm.LoadChatState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading chat state: %w", err)
	}

	if state == nil {
		state = &dotdir.ChatState{Model: c.model}
	}
	c.state = state

	return nil
}

// updateState saves what the backend announced during a turn.
func (c *chatCommander) updateState(conversationID, messageID string) {
	if conversationID == "" && messageID == "" {
		return
	}

	if conversationID != "" {
		c.state.ConversationID = conversationID
	}
	if messageID != "" {
		c.state.MessageID = messageID
	}
	c.state.Model = c.model
	c.state.UpdatedAt = time.Now().UTC()

	if err := c.ddm.SaveChatState(c.state, c.configDir); err != nil {
		c.logger.Warn("saving chat state", "error", err)
	}
}

func (c *chatCommander) printBanner() {
	fmt.Fprintln(c.out)
	if c.state.ConversationID != "" {
		fmt.Fprintf(c.out, "  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(utils.Truncate(c.state.ConversationID, 16)),
		)
	} else {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Backend:"), cliui.ValueStyle.Render(c.target))
	if c.model != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Model:"), cliui.NameStyle.Render(c.model))
	}
	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. Ctrl+C cancels a reply, /exit or Ctrl+D quits."))
}

// watchInterrupts cancels the streaming reply on every interrupt.
func (c *chatCommander) watchInterrupts() func() {
	if c.interrupts == nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-c.interrupts:
				if !c.cancelActive() && c.interactive {
					fmt.Fprintf(c.out, "\n  %s\n%s", cliui.DimStyle.Render("Use /exit or Ctrl+D to quit."), userPrompt)
				}
			}
		}
	}()

	return func() { close(done) }
}

func (c *chatCommander) setStreaming(streaming bool, conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = streaming
	c.streamConv = conversationID
}

// cancelActive cancels the streaming reply. It reports false when no reply
// was streaming.
func (c *chatCommander) cancelActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.streaming {
		return false
	}
	c.client.Cancel(c.streamConv)
	return true
}
