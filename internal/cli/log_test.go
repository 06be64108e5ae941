package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", LogInfo, func(l *log.Logger) { l.Info("planned") }, true},
		{"debug at info level", LogInfo, func(l *log.Logger) { l.Debug("planned") }, false},
		{"debug at debug level", LogDebug, func(l *log.Logger) { l.Debug("planned") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

// logged runs the CLI with args and returns what its logger wrote.
func logged(t *testing.T, doc string, args func(cfgPath, docPath string) []string) string {
	t.Helper()
	_, _, cfgPath, docPath := fixture(t, doc)
	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	c.SetOutput(io.Discard)
	if err := c.Execute(context.Background(), args(cfgPath, docPath)); err != nil {
		t.Fatal(err)
	}
	return logs.String()
}

func TestEvaluateLogsProgress(t *testing.T) {
	s := logged(t, smallDoc, func(cfgPath, docPath string) []string {
		return []string{"evaluate", docPath, "--config", cfgPath}
	})
	for _, want := range []string{"evaluated document", "equations=2", "elapsed="} {
		if !strings.Contains(s, want) {
			t.Errorf("log lacks %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "DEBU") {
		t.Errorf("debug lines without --verbose:\n%s", s)
	}
}

func TestFactorizeLogsProgress(t *testing.T) {
	s := logged(t, productDoc, func(cfgPath, docPath string) []string {
		return []string{"factorize", docPath, "a", "b", "--config", cfgPath}
	})
	for _, want := range []string{"searched common subnetwork", "matched=2", "elapsed="} {
		if !strings.Contains(s, want) {
			t.Errorf("log lacks %q:\n%s", want, s)
		}
	}
}

func TestVerboseLogsConfigFallback(t *testing.T) {
	s := logged(t, smallDoc, func(_, docPath string) []string {
		return []string{"plan", docPath, "--verbose"}
	})
	if !strings.Contains(s, "no config file, using defaults") {
		t.Errorf("verbose log lacks the config fallback:\n%s", s)
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := newLogger(&buf, LogInfo)

	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Error("loggerFromContext should fall back to log.Default")
	}
	got := loggerFromContext(withLogger(context.Background(), custom))
	if got != custom {
		t.Fatal("loggerFromContext should return the attached logger")
	}
	newProgress(got).done("evaluated document", "equations", 3)
	for _, want := range []string{"evaluated document", "equations=3", "elapsed="} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("progress output %q lacks %q", buf.String(), want)
		}
	}
}
