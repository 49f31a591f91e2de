package transcriptscmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fleet/cmd/fleet/backends"
	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/cliui"
	"github.com/papercomputeco/fleet/pkg/transcript"
	"github.com/papercomputeco/fleet/pkg/utils"
)

const listShortDesc string = "List recorded stream sessions"

type listCommander struct {
	storeCommander
	conversation string
	follow       bool
}

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmder.addFlags(cmd)
	cmd.Flags().StringVarP(&cmder.conversation, "conversation", "c", "", "Only list sessions of this conversation")
	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Keep printing sessions as they are recorded (sqlite only)")

	return cmd
}

func (c *listCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	driver, err := c.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer driver.Close()

	ts, err := c.list(ctx, driver)
	if err != nil {
		return err
	}
	printList(cmd.OutOrStdout(), ts)

	if !c.follow {
		return nil
	}

	if p := c.v.GetString("transcripts.provider"); p != "" && p != backends.ProviderSQLite {
		return fmt.Errorf("--follow needs the %s provider, not %q", backends.ProviderSQLite, p)
	}
	path, err := backends.SQLitePath(c.v, c.configDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	return c.followStore(ctx, driver, path, ts, cmd.OutOrStdout())
}

func (c *listCommander) list(ctx context.Context, driver transcript.Driver) ([]*chatstream.Transcript, error) {
	var (
		ts  []*chatstream.Transcript
		err error
	)
	if c.conversation != "" {
		ts, err = driver.ListByConversation(ctx, c.conversation)
	} else {
		ts, err = driver.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	return ts, nil
}

func printList(w io.Writer, ts []*chatstream.Transcript) {
	if len(ts) == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No transcripts recorded."))
		return
	}

	fmt.Fprintln(w)
	for _, t := range ts {
		printRow(w, t)
	}
	fmt.Fprintln(w)
}

func printRow(w io.Writer, t *chatstream.Transcript) {
	conv := t.ConversationID
	if conv == "" {
		conv = "<new>"
	}

	fmt.Fprintf(w, "  %s %s  %s  %-10s  %s\n",
		cliui.StateMark(t.State),
		cliui.NameStyle.Render(t.SessionID),
		cliui.KeyStyle.Render(utils.Truncate(conv, 16)),
		string(t.Kind),
		cliui.DimStyle.Render(fmt.Sprintf("%d events, %d dropped, %s, %s",
			len(t.Events),
			t.Dropped,
			cliui.FormatDuration(t.Duration()),
			t.StartedAt.Local().Format("2006-01-02 15:04:05"),
		)),
	)
}
