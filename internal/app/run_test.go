package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tc := range cases {
		got, err := parseLogLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseLogLevel(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("parseLogLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestClaimPIDFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "pester.pid")

	release, err := claimPIDFile(pidPath)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	pid, err := readPIDFile(pidPath)
	if err != nil || pid != os.Getpid() {
		t.Fatalf("readPIDFile = %d, %v", pid, err)
	}

	// A second claim against our live process must refuse.
	if _, err := claimPIDFile(pidPath); err == nil {
		t.Fatalf("expected claim conflict while process is running")
	}

	release()
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestClaimPIDFile_TakesOverStalePID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "pester.pid")
	// PID max on Linux defaults to well below this.
	if err := os.WriteFile(pidPath, []byte("4194304999\n"), 0o600); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	release, err := claimPIDFile(pidPath)
	if err != nil {
		t.Fatalf("expected stale pid takeover, got %v", err)
	}
	defer release()

	pid, err := readPIDFile(pidPath)
	if err != nil || pid != os.Getpid() {
		t.Fatalf("readPIDFile = %d, %v", pid, err)
	}
}

func TestClaimPIDFile_EmptyPathIsNoop(t *testing.T) {
	release, err := claimPIDFile("   ")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	release()
}

func TestOpsMux(t *testing.T) {
	metrics := newRuntimeMetrics(func() int { return 2 })
	metrics.observeCommand("info", "ok")
	metrics.observeAutoReply(true)
	mux := newOpsMux(metrics)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz body: %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`pester_commands_total{command="info",outcome="ok"} 1`,
		`pester_autoreplies_total 1`,
		`pester_pending_confirmations 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in metrics output", want)
		}
	}
}

func TestWithAccessLog_PreservesStatus(t *testing.T) {
	handler := withAccessLog(newDiscardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
