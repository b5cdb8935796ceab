package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogWritesAfterDisable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")

	if err := EnableAt(path); err != nil {
		t.Fatalf("EnableAt: %v", err)
	}
	if !Enabled() {
		t.Fatal("Expected logging enabled")
	}
	// second enable is a no-op
	if err := EnableAt(path); err != nil {
		t.Fatalf("EnableAt again: %v", err)
	}

	Log("engine", "remapped note=%d vel=%d", 60, 68)
	for i := 0; i < 3; i++ {
		LogEvery(3, "block", "size=%d", i)
	}
	Disable()

	if Enabled() {
		t.Error("Expected logging disabled")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)

	for _, want := range []string{"Debug logging started", "cat=engine", "remapped note=60 vel=68", "every 3, count=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %q, got:\n%s", want, out)
		}
	}
}

func TestLogDisabledIsNoop(t *testing.T) {
	Disable()
	Log("engine", "ignored")
	LogEvery(1, "engine", "ignored")
	if Dropped() != 0 {
		t.Errorf("Expected no drops while disabled, got %d", Dropped())
	}
}

func TestCLILogger(t *testing.T) {
	var sb strings.Builder
	logger := NewCLILogger(&sb, false)
	logger.Debug("hidden")
	logger.Info("shown", "port", "IAC")
	out := sb.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "port=IAC") {
		t.Errorf("Unexpected output %q", out)
	}
}
