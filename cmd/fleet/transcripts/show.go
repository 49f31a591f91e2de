package transcriptscmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/fleet/cmd/fleet/render"
	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/cliui"
)

const showLongDesc string = `Show a recorded stream session.

Prints the session summary followed by every event its handler received, in
arrival order. Use --content to print the reply assembled from its delta
events, rendered as markdown, or --json / --yaml for the raw transcript.

Examples:
  fleet transcripts show 0b9c5d3e-2f4e-4c51-9a4c-1c2d3e4f5a6b
  fleet transcripts show <session-id> --content`

const showShortDesc string = "Show a recorded stream session"

type showCommander struct {
	storeCommander
	asJSON  bool
	asYAML  bool
	content bool
}

func newShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.addFlags(cmd)
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the transcript as JSON")
	cmd.Flags().BoolVar(&cmder.asYAML, "yaml", false, "Print the transcript as YAML")
	cmd.Flags().BoolVar(&cmder.content, "content", false, "Print the assembled reply as markdown")

	return cmd
}

func (c *showCommander) run(cmd *cobra.Command, sessionID string) error {
	ctx := cmd.Context()

	driver, err := c.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer driver.Close()

	t, err := driver.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch {
	case c.asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)

	case c.asYAML:
		return writeYAML(w, t)

	case c.content:
		out, err := cliui.RenderMarkdown(render.Assemble(t.Events))
		if err != nil {
			return fmt.Errorf("rendering reply: %w", err)
		}
		fmt.Fprint(w, out)
		return nil

	default:
		printTranscript(w, t)
		return nil
	}
}

// writeYAML prints t as YAML keyed by its JSON field names. Event payloads
// stay nested documents instead of opaque strings.
func writeYAML(w io.Writer, t *chatstream.Transcript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("converting transcript: %w", err)
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles a JSON document parses into.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func printTranscript(w io.Writer, t *chatstream.Transcript) {
	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.StateMark(t.State), cliui.NameStyle.Render(t.SessionID))

	rows := [][2]string{
		{"Conversation:", t.ConversationID},
		{"Kind:", string(t.Kind)},
		{"State:", t.State.String()},
		{"Started:", t.StartedAt.Local().Format("2006-01-02 15:04:05")},
		{"Duration:", cliui.FormatDuration(t.Duration())},
		{"Dropped:", fmt.Sprintf("%d malformed frames", t.Dropped)},
	}
	if t.Error != "" {
		rows = append(rows, [2]string{"Error:", cliui.ErrorStyle.Render(t.Error)})
	}

	for _, row := range rows {
		fmt.Fprintf(w, "  %-14s %s\n", cliui.KeyStyle.Render(row[0]), row[1])
	}

	fmt.Fprintf(w, "\n  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("Events (%d):", len(t.Events))))
	for i, ev := range t.Events {
		fmt.Fprintf(w, "  %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%3d", i+1)),
			render.EventLine(ev, 100),
		)
	}
	fmt.Fprintln(w)
}
