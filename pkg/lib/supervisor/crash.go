package supervisor

import (
	"time"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
)

// crashRecord counts recent unintentional exits. It lives as long as the
// supervisor and is never persisted.
type crashRecord struct {
	attempts  int
	lastCrash time.Time
}

type crashDecision struct {
	attempts  int
	delay     time.Duration
	exhausted bool
}

// observe records a crash at now and decides what happens next. The counter
// restarts from zero when the previous crash is older than the reset window.
func (record *crashRecord) observe(now time.Time, policy config.RestartConfig) crashDecision {
	if !record.lastCrash.IsZero() && now.Sub(record.lastCrash) > policy.ResetWindow {
		record.attempts = 0
	}
	record.lastCrash = now
	record.attempts++

	if record.attempts > policy.MaxAttempts {
		return crashDecision{attempts: record.attempts, exhausted: true}
	}

	delay := policy.BaseDelay * time.Duration(record.attempts)
	if delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return crashDecision{attempts: record.attempts, delay: delay}
}

func (record *crashRecord) reset() {
	record.attempts = 0
}
