package debug

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStderr runs fn with os.Stderr redirected and returns what it wrote.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	oldStderr := os.Stderr
	defer func() { os.Stderr = oldStderr }()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestLogf(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		wantOutput string
	}{
		{"outputs when enabled", true, "test message: hello\n"},
		{"no output when disabled", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled := enabled
			defer func() { enabled = oldEnabled }()
			enabled = tt.enabled

			got := captureStderr(t, func() { Logf("test message: %s\n", "hello") })
			if got != tt.wantOutput {
				t.Errorf("Logf() output = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	oldEnabled, oldVerbose := enabled, verboseMode
	defer func() { enabled, verboseMode = oldEnabled, oldVerbose }()

	enabled = false
	verboseMode = false
	got := captureStderr(t, func() { Logger().Debug("hidden", "k", 1) })
	if got != "" {
		t.Errorf("disabled logger wrote %q", got)
	}

	SetVerbose(true)
	got = captureStderr(t, func() { Logger().Debug("searching stories", "project", 99) })
	if !strings.Contains(got, "searching stories") || !strings.Contains(got, "project=99") {
		t.Errorf("verbose logger output = %q", got)
	}
}

func TestSetVerbose(t *testing.T) {
	oldVerbose := verboseMode
	oldEnabled := enabled
	defer func() {
		verboseMode = oldVerbose
		enabled = oldEnabled
	}()

	enabled = false
	verboseMode = false

	if Enabled() {
		t.Error("Enabled() should be false initially")
	}

	SetVerbose(true)
	if !Enabled() {
		t.Error("Enabled() should be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if Enabled() {
		t.Error("Enabled() should be false after SetVerbose(false)")
	}
}

func TestQuietNormalWriter(t *testing.T) {
	oldQuiet := quietMode
	defer func() { quietMode = oldQuiet }()

	var buf bytes.Buffer
	SetQuiet(false)
	if IsQuiet() {
		t.Error("IsQuiet() should be false")
	}
	io.WriteString(Normal(&buf), "shown")

	SetQuiet(true)
	if !IsQuiet() {
		t.Error("IsQuiet() should be true after SetQuiet(true)")
	}
	io.WriteString(Normal(&buf), "hidden")

	if got := buf.String(); got != "shown" {
		t.Errorf("Normal() output = %q, want %q", got, "shown")
	}
}
