package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestLevels_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("node %s", "retrieve")
	Info("steps=%d", 5)
	Warn("slow")
	Section("Workflow")

	out := buf.String()
	for _, want := range []string{"[DEBUG] node retrieve\n", "[INFO] steps=5\n", "[WARN] slow\n", "=== Workflow ==="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %q", want, out)
		}
	}
}

func TestLevels_WhenQuiet(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Error("pool missing: %s", "passages.db")

	if buf.String() != "[ERROR] pool missing: passages.db\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestForRun(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	r := ForRun("0123456789abcdef")
	r.Info("enter %s", "relevance_check")

	if buf.String() != "[INFO] [01234567] enter relevance_check\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
