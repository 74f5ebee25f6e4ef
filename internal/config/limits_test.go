package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLimits(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "limits.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write limits: %v", err)
	}
	return path
}

func TestLoadSubLimits(t *testing.T) {
	path := writeLimits(t, `
global:
  max_match_subscriptions: 100
  join_retry_min_ms: 500
  join_retry_max_ms: 10000
sports:
  soccer:
    max_match_subscriptions: 300
`)

	limits, err := LoadSubLimits(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := limits.MaxFor("soccer"); got != 300 {
		t.Fatalf("soccer cap = %d", got)
	}
	if got := limits.MaxFor("tennis"); got != 100 {
		t.Fatalf("tennis cap should fall back to global, got %d", got)
	}
	if limits.JoinRetryMin() != 500*time.Millisecond {
		t.Fatalf("retry min = %v", limits.JoinRetryMin())
	}
	if limits.JoinRetryMax() != 10*time.Second {
		t.Fatalf("retry max = %v", limits.JoinRetryMax())
	}
}

func TestLoadSubLimitsBackfillsZeroFields(t *testing.T) {
	path := writeLimits(t, `
sports:
  tennis:
    max_match_subscriptions: 150
`)

	limits, err := LoadSubLimits(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultSubLimits()
	if limits.MaxFor("soccer") != def.Global.MaxMatchSubscriptions {
		t.Fatalf("global cap not backfilled")
	}
	if limits.JoinRetryMin() != def.JoinRetryMin() {
		t.Fatalf("retry min not backfilled")
	}
	if limits.MaxFor("tennis") != 150 {
		t.Fatalf("tennis override lost")
	}
}

func TestLoadSubLimitsMissingFile(t *testing.T) {
	if _, err := LoadSubLimits(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file should error")
	}
}
