package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/tripburn/internal/config"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tripburn.log")
	l, err := New(config.LoggingConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Component(l, "sync").WithField("slug", "laos").Info("pushed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"component":"sync"`, `"slug":"laos"`, `"msg":"pushed"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestNewBadLevelFallsBackToWarn(t *testing.T) {
	l, err := New(config.LoggingConfig{Level: "loud"})
	if err != nil {
		t.Fatal(err)
	}
	if l.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", l.GetLevel())
	}
}
