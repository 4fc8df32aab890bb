package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"campaign_feed/internal/domain"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream live feed events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL, err := clientFrom(cmd).StreamURL()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
			if err != nil {
				return fmt.Errorf("dial stream: %w", err)
			}
			defer conn.Close()
			go func() {
				<-ctx.Done()
				_ = conn.Close()
			}()

			jsonOut, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()
			for {
				_, raw, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("read stream: %w", err)
				}
				if jsonOut {
					fmt.Fprintln(w, string(raw))
					continue
				}
				var ev domain.FeedEvent
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				renderEvent(w, ev)
			}
		},
	}
}

func renderEvent(w io.Writer, ev domain.FeedEvent) {
	switch ev.Type {
	case domain.FeedPostCreated:
		if ev.Post != nil {
			fmt.Fprintf(w, "[t=%d] new %s post by %s: %s\n", ev.Tick, ev.Post.Type, ev.Post.Author.Handle, trimLine(ev.Post.Content, 80))
		}
	case domain.FeedReactionRevealed:
		if ev.Reaction != nil {
			line := fmt.Sprintf("[t=%d] %s %s on %s (shift %+d)", ev.Tick, ev.Reaction.PersonaID, ev.Reaction.ReactionType, shortID(ev.PostID), ev.Reaction.SentimentShift)
			if ev.Reaction.Comment != nil {
				line += ": " + trimLine(*ev.Reaction.Comment, 80)
			}
			fmt.Fprintln(w, line)
		}
	case domain.FeedNews:
		if ev.News != nil {
			fmt.Fprintf(w, "[t=%d] BREAKING: %s\n", ev.Tick, ev.News.Headline)
		}
	case domain.FeedPostSettled:
		fmt.Fprintf(w, "[t=%d] post %s settled\n", ev.Tick, shortID(ev.PostID))
	case domain.FeedReset:
		fmt.Fprintf(w, "[t=%d] session reset\n", ev.Tick)
	case domain.FeedSync:
		fmt.Fprintf(w, "[t=%d] connected\n", ev.Tick)
	}
}
