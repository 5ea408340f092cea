package config

import (
	"testing"
	"time"
)

func TestGetDuration(t *testing.T) {
	t.Setenv("TEAMUP_TEST_WINDOW", "90s")
	if got := GetDuration("TEAMUP_TEST_WINDOW", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
	t.Setenv("TEAMUP_TEST_WINDOW", "soon")
	if got := GetDuration("TEAMUP_TEST_WINDOW", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid value, got %s", got)
	}
}

func TestLoadTeamsConfigDefaults(t *testing.T) {
	t.Setenv("IDENTITY_TIMEOUT_MS", "250")
	t.Setenv("STORAGE_DRIVER", "memory")
	cfg := LoadTeamsConfig()
	if cfg.IdentityTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected identity timeout %s", cfg.IdentityTimeout)
	}
	if cfg.StorageDriver != "memory" || cfg.AuditActor != "TEAMS_MS" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
