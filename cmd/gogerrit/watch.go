package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonyxperiadev/gogerrit/internal/events"
	"github.com/sonyxperiadev/gogerrit/internal/terminal"
)

const watchPollInterval = 500 * time.Millisecond

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream review events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := terminal.NewLogger()
			ctx, cancel := signalContext(logger)
			defer cancel()

			session, client, err := connect(cmd, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := client.StartEventStream(ctx); err != nil {
				return err
			}
			defer client.StopEventStream()

			logger.Log("Watching events (Ctrl-C to stop)", terminal.StyleInfo)

			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				event := client.GetEvent(true, watchPollInterval)
				if event == nil {
					continue
				}
				renderEvent(event, logger)
			}
		},
	}
}

// renderEvent prints one event line. Unknown event types fall back to the
// raw type name so nothing is silently swallowed.
func renderEvent(event events.Event, logger *terminal.Logger) {
	switch e := event.(type) {
	case *events.PatchsetCreatedEvent:
		printChange("patchset-created", terminal.Green, e.Change, e.Patchset)
	case *events.DraftPublishedEvent:
		printChange("draft-published", terminal.Green, e.Change, e.Patchset)
	case *events.CommentAddedEvent:
		printChange("comment-added", terminal.Cyan, e.Change, e.Patchset)
	case *events.ChangeMergedEvent:
		printChange("change-merged", terminal.Magenta, e.Change, e.Patchset)
	case *events.MergeFailedEvent:
		printChange("merge-failed", terminal.Red, e.Change, e.Patchset)
	case *events.ChangeAbandonedEvent:
		printChange("change-abandoned", terminal.Yellow, e.Change, nil)
	case *events.ChangeRestoredEvent:
		printChange("change-restored", terminal.Yellow, e.Change, nil)
	case *events.ReviewerAddedEvent:
		printChange("reviewer-added", terminal.Cyan, e.Change, e.Patchset)
	case *events.TopicChangedEvent:
		printChange("topic-changed", terminal.Cyan, e.Change, nil)
	case *events.RefUpdatedEvent:
		fmt.Printf("%sref-updated%s %s %s (%s -> %s)\n",
			terminal.Color(terminal.Blue), terminal.Color(terminal.Reset),
			e.RefUpdate.Project, e.RefUpdate.RefName,
			shortRev(e.RefUpdate.OldRev), shortRev(e.RefUpdate.NewRev))
	case *events.ErrorEvent:
		logger.Logf(terminal.StyleError, "Stream error: %s", e.Err)
	case *events.UnhandledEvent:
		fmt.Printf("%s%s%s\n",
			terminal.Color(terminal.Dim), e.EventType(), terminal.Color(terminal.Reset))
	default:
		fmt.Println(event.EventType())
	}
}

func printChange(eventType, color string, change *events.Change, patchset *events.Patchset) {
	line := fmt.Sprintf("%s%s%s", terminal.Color(color), eventType, terminal.Color(terminal.Reset))
	if change != nil {
		line += fmt.Sprintf(" %s %s (%s) %s", change.Number, change.Project, change.Branch, change.Subject)
	}
	if patchset != nil && patchset.Number != "" {
		line += fmt.Sprintf(" [ps%s]", patchset.Number)
	}
	fmt.Println(line)
}

func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
