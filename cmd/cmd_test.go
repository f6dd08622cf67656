package cmd

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/theirongolddev/tripburn/internal/logging"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/state"
	"github.com/theirongolddev/tripburn/internal/store"
	"github.com/theirongolddev/tripburn/internal/tracker"
)

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"daemon", "--detach", "--addr", "127.0.0.1:9999", "--detach=true"})
	want := []string{"daemon", "--addr", "127.0.0.1:9999"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("filterDetachArg() = %v, want %v", got, want)
	}
}

func TestDaemonFilesClaimAndRelease(t *testing.T) {
	dir := t.TempDir()
	flagConfig = filepath.Join(dir, "config.toml")
	flagDaemonPIDFile = filepath.Join(dir, "run", "tripburnd.pid")
	flagDaemonAddr = "127.0.0.1:9911"
	t.Cleanup(func() { flagConfig, flagDaemonPIDFile, flagDaemonAddr = "", "", "" })

	files := resolveDaemonFiles()
	if files.State != filepath.Join(dir, "run", "tripburnd.json") || files.Addr != "127.0.0.1:9911" {
		t.Fatalf("files = %+v", files)
	}
	if pid, alive := files.running(); pid != 0 || alive {
		t.Fatalf("running() = %d, %v before claim", pid, alive)
	}

	st := daemonRuntimeState{PID: os.Getpid(), Addr: files.Addr, StartedAt: time.Now(), DBPath: "trip.db"}
	if err := files.claim(st); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if pid, alive := files.running(); pid != os.Getpid() || !alive {
		t.Fatalf("running() = %d, %v after claim", pid, alive)
	}
	if err := files.claim(st); err == nil {
		t.Fatal("second claim should fail while the owner is alive")
	}
	rt, err := files.runtimeState()
	if err != nil || rt.DBPath != "trip.db" {
		t.Fatalf("runtimeState() = %+v, %v", rt, err)
	}

	files.release()
	if _, err := os.Stat(files.PID); !os.IsNotExist(err) {
		t.Fatalf("pid file still present: %v", err)
	}
}

func TestParseArgs(t *testing.T) {
	if v, err := parseAmountArg("1,250.50"); err != nil || v != 1250.5 {
		t.Fatalf("parseAmountArg = %v, %v", v, err)
	}
	if _, err := parseAmountArg("ten"); err == nil {
		t.Fatal("expected an error for a non-numeric amount")
	}
	if id, err := parseIDArg("#12"); err != nil || id != 12 {
		t.Fatalf("parseIDArg = %v, %v", id, err)
	}
	for _, bad := range []string{"0", "-3", "x"} {
		if _, err := parseIDArg(bad); err == nil {
			t.Fatalf("parseIDArg(%q) should fail", bad)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abcdefghijklmnopqrstu", "abcdefgh...rstu"},
		{"abcdefgh", "abcd..."},
		{"abc", "****"},
	}
	for _, tt := range tests {
		if got := maskAPIKey(tt.in); got != tt.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImportFormatFromExtension(t *testing.T) {
	flagImportFormat = ""
	for path, want := range map[string]state.Format{
		"trip.yaml": state.FormatYAML,
		"trip.YML":  state.FormatYAML,
		"trip.json": state.FormatJSON,
		"trip":      state.FormatJSON,
	} {
		got, err := importFormat(path)
		if err != nil || got != want {
			t.Errorf("importFormat(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
}

func TestNewestFirst(t *testing.T) {
	in := []model.Expense{
		{ID: 1, Date: "2024-05-09"},
		{ID: 2, Date: "2024-05-10"},
		{ID: 3, Date: "2024-05-09"},
	}
	got := newestFirst(in)
	ids := []int64{got[0].ID, got[1].ID, got[2].ID}
	if !reflect.DeepEqual(ids, []int64{2, 3, 1}) {
		t.Fatalf("order = %v", ids)
	}
	if in[0].ID != 1 {
		t.Fatal("input slice was reordered")
	}
}

func TestCommandsWriteThroughTracker(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tripburn.db")
	run := func(args ...string) {
		t.Helper()
		full := append([]string{"--offline", "-q", "--config", filepath.Join(dir, "config.toml"), "--db", dbPath}, args...)
		rootCmd.SetArgs(full)
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	run("dest", "add", "Sri", "Lanka", "--currency", "LKR", "--rate", "380", "--days", "14", "--budget", "700")
	run("expense", "add", "12.50", "rice", "and", "curry", "-c", "food", "--date", "2024-05-10", "-r", "2")
	run("expense", "add", "3800", "tuk", "tuk", "-c", "transport", "--date", "2024-05-11", "-r", "0", "--local")
	run("days", "10")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	tr, err := tracker.Open(tracker.Options{DB: db, Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tr.Close(context.Background()) }()

	if tr.Active() != "sri-lanka" {
		t.Fatalf("active = %q, want sri-lanka", tr.Active())
	}
	st, err := tr.State("sri-lanka")
	if err != nil {
		t.Fatal(err)
	}
	if st.Budget != 700 || st.DurationDays != 10 {
		t.Fatalf("budget %v duration %d", st.Budget, st.DurationDays)
	}
	if len(st.Expenses) != 4 {
		t.Fatalf("expenses = %d, want 4", len(st.Expenses))
	}
	last := st.Expenses[3]
	if last.Amount != 10 || last.Category != model.CategoryTransport {
		t.Fatalf("local expense = %+v, want 10.00 transport", last)
	}
}
