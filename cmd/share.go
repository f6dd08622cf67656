package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
)

var flagShareYes bool

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Share the trip with another device under a code",
	RunE:  runShareStatus,
}

var shareCreateCmd = &cobra.Command{
	Use:   "create [code]",
	Short: "Publish all destinations under a new share code",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShareCreate,
}

var shareLoadCmd = &cobra.Command{
	Use:   "load <code>",
	Short: "Replace local state with a shared trip",
	Args:  cobra.ExactArgs(1),
	RunE:  runShareLoad,
}

var shareDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Stop publishing to the share code",
	Args:  cobra.NoArgs,
	RunE:  runShareDisconnect,
}

var shareStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active share code",
	Args:  cobra.NoArgs,
	RunE:  runShareStatus,
}

func init() {
	shareLoadCmd.Flags().BoolVarP(&flagShareYes, "yes", "y", false, "Do not ask before replacing local state")
	shareCmd.AddCommand(shareCreateCmd, shareLoadCmd, shareDisconnectCmd, shareStatusCmd)
	rootCmd.AddCommand(shareCmd)
}

func runShareCreate(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	custom := ""
	if len(args) == 1 {
		custom = args[0]
	}
	ctx, cancel := s.ctx()
	defer cancel()

	code, err := s.tr.Sync().CreateShare(ctx, custom)
	if err != nil {
		return offlineHint(err)
	}
	fmt.Printf("  Share code: %s\n", cli.Header(code))
	fmt.Printf("  On another device run: tripburn share load %s\n", code)
	return nil
}

func runShareLoad(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	if !flagShareYes && !confirm(fmt.Sprintf("Replace all local expenses with shared trip %s?", args[0])) {
		fmt.Println("  Cancelled.")
		return nil
	}

	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.tr.Sync().LoadShare(ctx, args[0]); err != nil {
		return offlineHint(err)
	}
	fmt.Printf("  %s\n", s.tr.Sync().Status().Message)
	return nil
}

func runShareDisconnect(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	code := s.tr.Sync().ShareCode()
	if err := s.tr.Sync().Disconnect(); err != nil {
		return err
	}
	if code == "" {
		fmt.Println("  No active share code.")
		return nil
	}
	fmt.Printf("  Stopped sharing %s\n", code)
	return nil
}

func runShareStatus(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	code := s.tr.Sync().ShareCode()
	if code == "" {
		fmt.Println("  Not sharing. Create a code with: tripburn share create")
		return nil
	}
	fmt.Printf("  Share code: %s\n", cli.Header(code))
	if !s.tr.Sync().Connected() {
		fmt.Println("  Sync backend unavailable; changes will publish once it is configured.")
	}
	return nil
}
