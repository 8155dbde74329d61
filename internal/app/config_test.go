package app

import "testing"

func TestLoadRunConfig_Defaults(t *testing.T) {
	cfg, err := loadRunConfig()
	if err != nil {
		t.Fatalf("loadRunConfig: %v", err)
	}
	if cfg.StateFile != "./state.json" {
		t.Fatalf("expected default state file, got %q", cfg.StateFile)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.Watch {
		t.Fatalf("expected watch disabled by default")
	}
}

func TestLoadRunConfig_Environment(t *testing.T) {
	t.Setenv("PESTER_STATE_FILE", "/var/lib/pester/state.json")
	t.Setenv("PESTER_LOG_LEVEL", "debug")
	t.Setenv("PESTER_OPS_ADDR", "127.0.0.1:9120")
	t.Setenv("PESTER_WATCH", "true")

	cfg, err := loadRunConfig()
	if err != nil {
		t.Fatalf("loadRunConfig: %v", err)
	}
	if cfg.StateFile != "/var/lib/pester/state.json" {
		t.Fatalf("state file: %q", cfg.StateFile)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: %q", cfg.LogLevel)
	}
	if cfg.OpsAddr != "127.0.0.1:9120" {
		t.Fatalf("ops addr: %q", cfg.OpsAddr)
	}
	if !cfg.Watch {
		t.Fatalf("expected watch enabled")
	}
}

func TestResolveToken(t *testing.T) {
	if _, err := (runConfig{}).resolveToken(); err == nil {
		t.Fatalf("expected error for missing token")
	}

	token, err := (runConfig{Token: " abc "}).resolveToken()
	if err != nil || token != "abc" {
		t.Fatalf("got %q, %v", token, err)
	}

	// The legacy variable only applies when the primary one is unset.
	token, err = (runConfig{LegacyToken: "legacy"}).resolveToken()
	if err != nil || token != "legacy" {
		t.Fatalf("got %q, %v", token, err)
	}
	token, err = (runConfig{Token: "primary", LegacyToken: "legacy"}).resolveToken()
	if err != nil || token != "primary" {
		t.Fatalf("got %q, %v", token, err)
	}
}
