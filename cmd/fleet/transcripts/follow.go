package transcriptscmder

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

// followStore prints every transcript that appears in the SQLite store at
// path after seen was listed. It returns nil once ctx is done.
func (c *listCommander) followStore(ctx context.Context, driver transcript.Driver, path string, seen []*chatstream.Transcript, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating store watcher: %w", err)
	}
	defer watcher.Close()

	// The store writes through its -wal and -journal siblings, so the whole
	// directory is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching store dir: %w", err)
	}

	known := make(map[string]struct{}, len(seen))
	for _, t := range seen {
		known[t.SessionID] = struct{}{}
	}

	printNew := func() error {
		ts, err := c.list(ctx, driver)
		if err != nil {
			return err
		}
		for _, t := range ts {
			if _, ok := known[t.SessionID]; ok {
				continue
			}
			known[t.SessionID] = struct{}{}
			printRow(out, t)
		}
		return nil
	}

	// Catch sessions recorded between the initial listing and Add.
	if err := printNew(); err != nil {
		return err
	}

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := printNew(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("store watcher error: %w", err)
		}
	}
}
