package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStateFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write state file: %v", err)
	}
	return path
}

func TestStateValidate_OK(t *testing.T) {
	path := writeStateFile(t, `{"1001":{"adminIDs":[10],"targetIDs":[12],"message":"pong"}}`)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := stateValidate([]string{"--state", path}, stdout, stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr=%q)", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, `"ok":true`) || !strings.Contains(out, `"guilds":1`) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestStateValidate_ProblemsGoToStderr(t *testing.T) {
	path := writeStateFile(t, `{"not-a-guild":{"adminIDs":[0,10,10],"targetIDs":[],"message":""}}`)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := stateValidate([]string{"--state", path, "--format", "text"}, stdout, stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected problems on stderr only, stdout=%q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "not-a-guild") {
		t.Fatalf("expected the offending key named: %q", stderr.String())
	}
}

func TestStateValidate_MissingFile(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := stateValidate([]string{"--state", filepath.Join(t.TempDir(), "absent.json")}, stdout, stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), `"ok":false`) {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestStateShow(t *testing.T) {
	path := writeStateFile(t, `{
		"1001": {"adminIDs": [10, 11], "targetIDs": [12], "message": "pong"},
		"1002": {"adminIDs": [], "targetIDs": [], "message": ""}
	}`)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := stateShow([]string{"--state", path}, stdout, stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr=%q)", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{
		"guild 1001: admins=2 targets=1 message=pong",
		"guild 1002: admins=0 targets=0 message=(none)",
		"2 guilds",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestStateShow_CorruptFile(t *testing.T) {
	path := writeStateFile(t, `[]`)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := stateShow([]string{"--state", path}, stdout, stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}
