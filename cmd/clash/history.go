package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/clash/internal/platform/tui"
	"github.com/vovakirdan/clash/internal/storage"
)

var (
	flagPlayer  string
	flagPlain   bool
	flagMatches bool
	flagLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded sessions and matches",
	Long: `Browse the sessions played from this machine and the matches hosted by it.

Examples:
  clash history
  clash history --player alice
  clash history --plain --matches --limit 5`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagPlayer, "player", "", "Show statistics for this player")
	historyCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print to stdout instead of opening the browser")
	historyCmd.Flags().BoolVar(&flagMatches, "matches", false, "With --plain, list server matches instead of sessions")
	historyCmd.Flags().IntVar(&flagLimit, "limit", 10, "With --plain, number of rows to print")
}

func runHistory(_ *cobra.Command, _ []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if !flagPlain {
		width, height := 80, 24 // Defaults
		if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
			width = w
			height = h
		}
		if err := tui.RunHistory(store, flagPlayer, width, height); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flagMatches {
		err = printMatches(store)
	} else {
		err = printSessions(store)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving history: %v\n", err)
		os.Exit(1)
	}
}

func printSessions(store *storage.Store) error {
	records, err := store.RecentSessions(flagLimit)
	if err != nil {
		return err
	}

	fmt.Println("Recent sessions")
	fmt.Println()
	if len(records) == 0 {
		fmt.Println("No sessions recorded yet.")
		fmt.Println()
		fmt.Println("Play 'clash play --local' to record one!")
		return nil
	}

	fmt.Printf("  %-14s  %-9s  %-18s  %-7s  %s\n", "Player", "Outcome", "Error", "RTT", "Date")
	fmt.Printf("  %-14s  %-9s  %-18s  %-7s  %s\n", "------", "-------", "-----", "---", "----")
	for _, r := range records {
		errKind := r.ErrorKind
		if errKind == "" {
			errKind = "-"
		}
		fmt.Printf("  %-14s  %-9s  %-18s  %-7s  %s\n",
			r.Player, r.Outcome, errKind,
			fmt.Sprintf("%dms", r.RTTMean.Milliseconds()),
			r.CreatedAt.Format("2006-01-02 15:04"))
	}

	if flagPlayer != "" {
		stats, err := store.GetPlayerStats(flagPlayer)
		if err == nil {
			fmt.Println()
			fmt.Printf("%s: %d sessions, %d won, %d failed, avg rtt %dms\n",
				stats.Player, stats.Sessions, stats.Wins, stats.Failures, stats.AvgRTT.Milliseconds())
		}
	}
	return nil
}

func printMatches(store *storage.Store) error {
	records, err := store.RecentMatches(flagLimit)
	if err != nil {
		return err
	}

	fmt.Println("Recent matches")
	fmt.Println()
	if len(records) == 0 {
		fmt.Println("No matches recorded yet.")
		fmt.Println()
		fmt.Println("Host one with 'clash serve'.")
		return nil
	}

	fmt.Printf("  %-8s  %-7s  %-14s  %-10s  %-6s  %s\n", "Match", "Players", "Winner", "End", "Length", "Date")
	fmt.Printf("  %-8s  %-7s  %-14s  %-10s  %-6s  %s\n", "-----", "-------", "------", "---", "------", "----")
	for _, r := range records {
		winner := r.Winner
		if winner == "" {
			winner = "-"
		}
		fmt.Printf("  %-8s  %-7d  %-14s  %-10s  %-6s  %s\n",
			r.MatchID, r.Players, winner, r.EndReason,
			fmt.Sprintf("%ds", r.Duration),
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
