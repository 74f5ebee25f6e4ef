package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SportLimits bound the subscription load one sport may generate.
type SportLimits struct {
	MaxMatchSubscriptions int `yaml:"max_match_subscriptions"`
}

type GlobalLimits struct {
	MaxMatchSubscriptions int `yaml:"max_match_subscriptions"`
	JoinRetryMinMs        int `yaml:"join_retry_min_ms"`
	JoinRetryMaxMs        int `yaml:"join_retry_max_ms"`
}

// SubLimits caps how many per-match channels the reconciler will hold open
// and bounds the retry backoff after a failed join.
type SubLimits struct {
	Global GlobalLimits           `yaml:"global"`
	Sports map[string]SportLimits `yaml:"sports"`
}

// DefaultSubLimits is used when no limits file is configured or readable.
func DefaultSubLimits() SubLimits {
	return SubLimits{
		Global: GlobalLimits{
			MaxMatchSubscriptions: 200,
			JoinRetryMinMs:        1000,
			JoinRetryMaxMs:        30000,
		},
	}
}

func LoadSubLimits(path string) (SubLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SubLimits{}, fmt.Errorf("read sub limits: %w", err)
	}

	var limits SubLimits
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return SubLimits{}, fmt.Errorf("parse sub limits: %w", err)
	}

	def := DefaultSubLimits()
	if limits.Global.MaxMatchSubscriptions == 0 {
		limits.Global.MaxMatchSubscriptions = def.Global.MaxMatchSubscriptions
	}
	if limits.Global.JoinRetryMinMs == 0 {
		limits.Global.JoinRetryMinMs = def.Global.JoinRetryMinMs
	}
	if limits.Global.JoinRetryMaxMs == 0 {
		limits.Global.JoinRetryMaxMs = def.Global.JoinRetryMaxMs
	}
	return limits, nil
}

// MaxFor returns the per-match subscription cap for a sport.
func (sl SubLimits) MaxFor(sport string) int {
	if s, ok := sl.Sports[sport]; ok && s.MaxMatchSubscriptions > 0 {
		return s.MaxMatchSubscriptions
	}
	return sl.Global.MaxMatchSubscriptions
}

func (sl SubLimits) JoinRetryMin() time.Duration {
	return time.Duration(sl.Global.JoinRetryMinMs) * time.Millisecond
}

func (sl SubLimits) JoinRetryMax() time.Duration {
	return time.Duration(sl.Global.JoinRetryMaxMs) * time.Millisecond
}
