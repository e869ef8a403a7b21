package config

import (
	"os"
	"strings"
)

// RejectDuplicateTickPeriod turns on the duplicate-period pre-check for tick runs:
// a tick for a month that already has facts aborts before writing anything.
// Default is off; repeated ticks for the same month append duplicate facts.
//
// Set via env:
// - TICK_REJECT_DUPLICATE_PERIOD=true
func RejectDuplicateTickPeriod() bool {
	return boolFromEnv("TICK_REJECT_DUPLICATE_PERIOD")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
