package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
	"github.com/theirongolddev/tripburn/internal/cloudsync"
)

var flagSyncLogLimit int

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push and pull destinations to the sync backend",
	RunE:  runSyncStatus,
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the selected destination",
	Args:  cobra.NoArgs,
	RunE:  runSyncPush,
}

var syncPushAllCmd = &cobra.Command{
	Use:   "push-all",
	Short: "Push every destination",
	Args:  cobra.NoArgs,
	RunE:  runSyncPushAll,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull remote destinations into local state",
	Args:  cobra.NoArgs,
	RunE:  runSyncPull,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state and recent sync log",
	Args:  cobra.NoArgs,
	RunE:  runSyncStatus,
}

func init() {
	syncStatusCmd.Flags().IntVarP(&flagSyncLogLimit, "limit", "n", 10, "Number of log entries to show")
	syncCmd.AddCommand(syncPushCmd, syncPushAllCmd, syncPullCmd, syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func offlineHint(err error) error {
	if errors.Is(err, cloudsync.ErrDisconnected) {
		if flagOffline {
			return errors.New("sync is disabled by --offline")
		}
		return errors.New("no sync backend configured; set [remote] url in the config or run `tripburn setup`")
	}
	return err
}

func runSyncPush(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.destination()
	if err != nil {
		return noDestinationHint(err)
	}
	ctx, cancel := s.ctx()
	defer cancel()

	progress("Pushing %s...", cfg.Name)
	if err := s.tr.Sync().Push(ctx, cfg.Slug); err != nil {
		return offlineHint(err)
	}
	fmt.Printf("  %s\n", s.tr.Sync().Status().Message)
	return nil
}

func runSyncPushAll(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := s.ctx()
	defer cancel()

	progress("Pushing %d destinations...", len(s.tr.Destinations()))
	if err := s.tr.Sync().PushAll(ctx); err != nil {
		return offlineHint(err)
	}
	fmt.Printf("  Pushed %d destinations\n", len(s.tr.Destinations()))
	return nil
}

func runSyncPull(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	slug := ""
	if flagDestination != "" {
		if slug, err = s.slug(); err != nil {
			return err
		}
	}
	ctx, cancel := s.ctx()
	defer cancel()

	progress("Pulling...")
	res, err := s.tr.Sync().Pull(ctx, slug)
	if err != nil {
		return offlineHint(err)
	}
	fmt.Printf("  Fetched %d remote records\n", res.Records)
	if len(res.Touched) > 0 {
		fmt.Printf("  Updated: %s\n", strings.Join(res.Touched, ", "))
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("  Skipped %d malformed records\n", len(res.Skipped))
	}
	return nil
}

func runSyncStatus(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	st := s.tr.Sync().Status()
	fmt.Println()
	switch {
	case st.Connected:
		fmt.Printf("  Backend:   %s\n", s.cfg.Remote.URL)
	case flagOffline:
		fmt.Println("  Backend:   offline (--offline)")
	default:
		fmt.Println("  Backend:   not configured")
	}
	if st.ShareCode != "" {
		fmt.Printf("  Share:     %s\n", st.ShareCode)
	}
	fmt.Printf("  Last push: %s\n", cli.FormatAgo(st.LastPush))
	fmt.Printf("  Last pull: %s\n", cli.FormatAgo(st.LastPull))
	if st.Message != "" {
		fmt.Printf("  Status:    %s\n", cli.ToneStyle(st.Tone).Render(st.Message))
	}

	events, err := s.db.RecentSyncEvents(flagSyncLogLimit)
	if err != nil || len(events) == 0 {
		return err
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		result := "ok"
		if !ev.OK {
			result = "failed"
		}
		rows = append(rows, []string{
			cli.FormatAgo(ev.At),
			ev.Op,
			ev.Slug,
			result,
			cli.Truncate(ev.Message, 48),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Recent sync activity",
		Headers: []string{"When", "Op", "Destination", "Result", "Message"},
		Rows:    rows,
	}))
	return nil
}
