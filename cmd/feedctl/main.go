package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"campaign_feed/internal/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "feedctl",
		Short: "Control a running campaign feed simulation",
		Long: `feedctl talks to a feedsim server over its HTTP API.

It posts as the player candidate, inspects the feed, personas and news,
and drives the session clock.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("addr", "http://localhost:8092", "feedsim base URL")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(
		newStatusCmd(),
		newFeedCmd(),
		newPostCmd(),
		newPersonasCmd(),
		newNewsCmd(),
		newSessionCmd(),
		newResetCmd(),
		newSaveCmd(),
		newPauseCmd(),
		newResumeCmd(),
		newGenerationsCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

func clientFrom(cmd *cobra.Command) *client.Client {
	addr, _ := cmd.Flags().GetString("addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return client.New(addr, timeout)
}

// emit writes v as indented JSON when --json is set, otherwise calls text.
func emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func trimLine(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func shortID(v string) string {
	if len(v) <= 8 {
		return v
	}
	return v[:8]
}
