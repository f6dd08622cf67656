package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
	"github.com/theirongolddev/tripburn/internal/config"
	"github.com/theirongolddev/tripburn/internal/daemon"
	"github.com/theirongolddev/tripburn/internal/money"
)

type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DBPath    string    `json:"db_path"`
}

var (
	flagDaemonAddr         string
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonReloadDelay  time.Duration
	flagDaemonNoPull       bool
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run a background budget daemon with HTTP/SSE endpoints",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", "", "PID file path (default <data dir>/tripburnd.pid)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", "", "Log file path for detached mode (default <data dir>/tripburnd.log)")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	daemonCmd.Flags().DurationVar(&flagDaemonReloadDelay, "reload-delay", 300*time.Millisecond, "Quiet period before reloading after a database write")
	daemonCmd.Flags().BoolVar(&flagDaemonNoPull, "no-pull", false, "Skip the startup pull from the sync backend")
	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// daemonFiles are the locations a daemon instance claims. The state file sits
// next to the pid file.
type daemonFiles struct {
	Addr  string
	PID   string
	State string
	Log   string
}

// resolveDaemonFiles fills in anything not given by flags from the config data dir.
func resolveDaemonFiles() daemonFiles {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	dir := config.DataDir(cfg)

	f := daemonFiles{Addr: flagDaemonAddr, PID: flagDaemonPIDFile, Log: flagDaemonLogFile}
	if f.Addr == "" {
		f.Addr = cfg.Daemon.Addr
	}
	if f.PID == "" {
		f.PID = filepath.Join(dir, "tripburnd.pid")
	}
	if f.Log == "" {
		f.Log = filepath.Join(dir, "tripburnd.log")
	}
	f.State = strings.TrimSuffix(f.PID, filepath.Ext(f.PID)) + ".json"
	return f
}

// running returns the pid recorded in the pid file when that process is alive.
func (f daemonFiles) running() (int, bool) {
	data, err := os.ReadFile(f.PID) //nolint:gosec // path is configured by the local user
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, processAlive(pid)
}

// claim fails when another daemon owns the files, clears stale ones and records
// this process.
func (f daemonFiles) claim(st daemonRuntimeState) error {
	if pid, alive := f.running(); alive {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	f.release()
	if st.PID == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.PID), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(f.PID, []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.State, append(data, '\n'), 0o600)
}

func (f daemonFiles) release() {
	_ = os.Remove(f.PID)
	_ = os.Remove(f.State)
}

func (f daemonFiles) runtimeState() (daemonRuntimeState, error) {
	var st daemonRuntimeState
	data, err := os.ReadFile(f.State) //nolint:gosec // path is configured by the local user
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func runDaemon(_ *cobra.Command, _ []string) error {
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("invalid daemon launch mode")
	case flagDaemonDetach:
		return startDaemonDetached(resolveDaemonFiles())
	default:
		return runDaemonForeground(resolveDaemonFiles())
	}
}

func startDaemonDetached(files daemonFiles) error {
	if pid, alive := files.running(); alive {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(files.Log), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	logf, err := os.OpenFile(files.Log, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // path is configured by the local user
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, append(filterDetachArg(os.Args[1:]), "--child")...) //nolint:gosec // re-invokes this binary
	child.Stdout, child.Stderr = logf, logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  Budget API: http://%s/v1/status\n", files.Addr)
	fmt.Printf("  Log: %s\n", files.Log)
	return nil
}

func runDaemonForeground(files daemonFiles) error {
	if err := files.claim(daemonRuntimeState{}); err != nil {
		return err
	}

	metrics := daemon.NewMetrics()
	s, err := openSession(metrics)
	if err != nil {
		return err
	}
	defer s.close()

	err = files.claim(daemonRuntimeState{
		PID:       os.Getpid(),
		Addr:      files.Addr,
		StartedAt: time.Now(),
		DBPath:    s.db.Path(),
	})
	if err != nil {
		return err
	}
	defer files.release()

	svc := daemon.New(daemon.Config{
		Addr:         files.Addr,
		DBPath:       s.db.Path(),
		EventsBuffer: flagDaemonEventsBuffer,
		StartupPull:  !flagDaemonNoPull,
		ReloadDelay:  flagDaemonReloadDelay,
	}, s.tr, metrics, s.log)

	fmt.Printf("  tripburn daemon listening on http://%s\n", files.Addr)
	fmt.Printf("  Watching %s\n", s.db.Path())
	if s.tr.Sync().Connected() {
		fmt.Printf("  Syncing with %s\n", s.cfg.Remote.URL)
	}
	fmt.Printf("  Stop with: tripburn daemon stop --pid-file %s\n", files.PID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	files := resolveDaemonFiles()
	pid, alive := files.running()
	switch {
	case pid == 0:
		fmt.Println("  Daemon: not running")
		return nil
	case !alive:
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := files.Addr
	rt, err := files.runtimeState()
	if err == nil && rt.Addr != "" {
		addr = rt.Addr
	}
	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address:    http://%s\n", addr)
	if rt.DBPath != "" {
		fmt.Printf("  Database:   %s\n", rt.DBPath)
	}

	st, err := fetchDaemonStatus(addr)
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}

	fmt.Printf("  Up since:   %s (%s)\n", st.StartedAt.Local().Format(time.RFC3339), cli.FormatAgo(st.StartedAt))
	if st.Active != "" {
		cfg, _ := loadConfig()
		fmt.Printf("  Active:     %s\n", st.Summary.Name)
		fmt.Printf("  Spent:      %s of %s (%s)\n",
			money.Format(cfg.General.HomeSymbol, st.Summary.Spent),
			money.Format(cfg.General.HomeSymbol, st.Summary.Budget),
			cli.FormatPercent(st.Summary.ProgressPct))
		fmt.Printf("  Expenses:   %d\n", st.Summary.ExpenseCount)
		if st.Summary.PacingLabel != "" {
			fmt.Printf("  Pacing:     %s\n", st.Summary.PacingLabel)
		}
	}
	if st.Sync.Connected {
		fmt.Printf("  Sync:       %s (last push %s)\n", st.Sync.Message, cli.FormatAgo(st.Sync.LastPush))
	} else {
		fmt.Println("  Sync:       offline")
	}
	fmt.Printf("  Reloads:    %d\n", st.ReloadCount)
	fmt.Printf("  Listeners:  %d\n", st.SubscriberCount)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func fetchDaemonStatus(addr string) (daemon.Status, error) {
	var st daemon.Status
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status check
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed response (%w)", err)
	}
	return st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	files := resolveDaemonFiles()
	pid, alive := files.running()
	if !alive {
		files.release()
		return errors.New("daemon is not running")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(8 * time.Second)
	for {
		select {
		case <-ticker.C:
			if processAlive(pid) {
				continue
			}
			files.release()
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		case <-timeout:
			return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
		}
	}
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
