package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"campaign_feed/internal/domain"
)

func newFeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List the newest posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			posts, err := clientFrom(cmd).Feed(limit)
			if err != nil {
				return fmt.Errorf("fetching feed: %w", err)
			}
			return emit(cmd, posts, func(w io.Writer) { renderFeed(w, posts) })
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum posts to show")
	return cmd
}

func newPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <content>",
		Short: "Publish a post as the player candidate",
		Long: `Publishes a post and dispatches persona reactions for it.

At most three issue tags are accepted; the server rejects a post while the
previous one is still collecting reactions.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, _ := cmd.Flags().GetStringSlice("tag")
			post, err := clientFrom(cmd).Post(strings.Join(args, " "), tags)
			if err != nil {
				return fmt.Errorf("publishing post: %w", err)
			}
			return emit(cmd, post, func(w io.Writer) {
				fmt.Fprintf(w, "posted %s at tick %d tags=%s\n", shortID(post.ID), post.Timestamp, joinIssues(post.IssueTags))
			})
		},
	}
	cmd.Flags().StringSlice("tag", nil, "Issue tag (repeatable): economy, healthcare, immigration, ...")
	return cmd
}

func newNewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "List recent news events",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			items, err := clientFrom(cmd).News(limit)
			if err != nil {
				return fmt.Errorf("fetching news: %w", err)
			}
			return emit(cmd, items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "No news yet")
					return
				}
				for _, n := range items {
					fmt.Fprintf(w, "[t=%d] %s (%s)\n  %s\n", n.Timestamp, n.Headline, joinIssues(n.AffectedIssues), trimLine(n.Description, 120))
				}
			})
		},
	}
	cmd.Flags().Int("limit", 10, "Maximum items to show")
	return cmd
}

func renderFeed(w io.Writer, posts []domain.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "Feed is empty")
		return
	}
	for _, p := range posts {
		shown := 0
		for _, r := range p.Reactions {
			if r.IsDisplayed {
				shown++
			}
		}
		state := ""
		if p.IsProcessing {
			state = " (collecting)"
		}
		fmt.Fprintf(w, "[t=%d] %-7s %s %s%s\n", p.Timestamp, p.Type, p.Author.Handle, trimLine(p.Content, 80), state)
		fmt.Fprintf(w, "  likes=%d retweets=%d dislikes=%d reactions=%d/%d tags=%s\n",
			p.Engagement.DisplayedLikes, p.Engagement.DisplayedRetweets, p.Engagement.DisplayedDislikes,
			shown, len(p.Reactions), joinIssues(p.IssueTags))
	}
}

func joinIssues(issues []domain.Issue) string {
	if len(issues) == 0 {
		return "-"
	}
	parts := make([]string, len(issues))
	for i, v := range issues {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}
