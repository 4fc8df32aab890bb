package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"campaign_feed/internal/api"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show clock, favorability, queue and usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := clientFrom(cmd).Status()
			if err != nil {
				return fmt.Errorf("fetching status: %w", err)
			}
			return emit(cmd, st, func(w io.Writer) { renderStatus(w, st) })
		},
	}
}

func renderStatus(w io.Writer, st api.StatusResponse) {
	if !st.Started {
		fmt.Fprintln(w, "No campaign in progress")
		return
	}
	clock := "running"
	if st.Paused {
		clock = "paused"
	}
	fmt.Fprintf(w, "tick=%d clock=%s next_news=%d next_rival=%d watchers=%d\n", st.Tick, clock, st.NextNewsTick, st.NextRivalTick, st.Watchers)
	if st.Player != nil && st.Rival != nil {
		fmt.Fprintf(w, "%s (%s) %d%%  vs  %s (%s) %d%%\n",
			st.Player.CandidateName, st.Player.Party, st.PlayerFavorability,
			st.Rival.Name, st.Rival.Party, st.RivalFavorability)
	}
	fmt.Fprintf(w, "queue pending=%d active=%d  usage tokens=%d cost=$%.4f  hot=%s\n",
		st.Queue.Pending, st.Queue.Active, st.Usage.TotalTokens, st.Usage.TotalCost, joinIssues(st.HotIssues))
}

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List personas and their opinions",
		RunE: func(cmd *cobra.Command, args []string) error {
			personas, err := clientFrom(cmd).Personas()
			if err != nil {
				return fmt.Errorf("fetching personas: %w", err)
			}
			sort.SliceStable(personas, func(i, j int) bool {
				return personas[i].OpinionOfPlayer > personas[j].OpinionOfPlayer
			})
			return emit(cmd, personas, func(w io.Writer) {
				for _, p := range personas {
					fmt.Fprintf(w, "%-22s %-18s leaning=%4d player=%4d rival=%4d wave=%d\n",
						p.Name, p.Handle, p.PoliticalLeaning, p.OpinionOfPlayer, p.OpinionOfRival, p.ResponseWave)
				}
			})
		},
	}
}

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start a new campaign, discarding the current one",
		Long: `Starts a new campaign at tick 0 with a fresh roster.

Flags override the server's configured player; the rival is derived from
the player's party unless the server config names one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req api.SessionRequest
			req.CandidateName, _ = cmd.Flags().GetString("name")
			req.Party, _ = cmd.Flags().GetString("party")
			req.PriorityIssues, _ = cmd.Flags().GetStringSlice("issue")
			if cmd.Flags().Changed("position") {
				pos, _ := cmd.Flags().GetInt("position")
				req.PoliticalPosition = &pos
			}
			if err := clientFrom(cmd).NewSession(req); err != nil {
				return fmt.Errorf("starting session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "new campaign started")
			return nil
		},
	}
	cmd.Flags().String("name", "", "Candidate name")
	cmd.Flags().String("party", "", "Candidate party")
	cmd.Flags().Int("position", 0, "Political position (-100..100)")
	cmd.Flags().StringSlice("issue", nil, "Priority issue (repeatable)")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abort all generation work and clear the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFrom(cmd).Reset(); err != nil {
				return fmt.Errorf("resetting: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
			return nil
		},
	}
}

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Persist a snapshot of the running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			tick, err := clientFrom(cmd).Snapshot()
			if err != nil {
				return fmt.Errorf("saving snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot saved at tick %d\n", tick)
			return nil
		},
	}
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Stop the session clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFrom(cmd).Pause(); err != nil {
				return fmt.Errorf("pausing: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "clock paused")
			return nil
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Restart the session clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFrom(cmd).Resume(); err != nil {
				return fmt.Errorf("resuming: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "clock running")
			return nil
		},
	}
}

func newGenerationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generations",
		Short: "Show the generation log",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFrom(cmd)
			if stats, _ := cmd.Flags().GetBool("stats"); stats {
				items, err := c.GenerationStats()
				if err != nil {
					return fmt.Errorf("fetching generation stats: %w", err)
				}
				return emit(cmd, items, func(w io.Writer) {
					for _, s := range items {
						fmt.Fprintf(w, "%-18s total=%d failed=%d tokens=%d cost=$%.4f avg=%dms\n",
							s.Kind, s.Total, s.Failed, s.Tokens, s.Cost, s.AvgDurMS)
					}
				})
			}
			limit, _ := cmd.Flags().GetInt("limit")
			items, err := c.Generations(limit)
			if err != nil {
				return fmt.Errorf("fetching generation log: %w", err)
			}
			return emit(cmd, items, func(w io.Writer) {
				for _, r := range items {
					line := fmt.Sprintf("[%s] %-18s %s attempts=%d tokens=%d %dms",
						r.CreatedAt.Format("15:04:05"), r.Kind, shortID(r.JobID), r.Attempts, r.TokensUsed, r.DurationMS)
					if r.Error != "" {
						line += " error=" + trimLine(r.Error, 60)
					}
					fmt.Fprintln(w, line)
				}
			})
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum records to show")
	cmd.Flags().Bool("stats", false, "Show per-kind totals instead of records")
	return cmd
}
