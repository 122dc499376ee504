package config

import (
	"os"
	"time"
)

func BackendBaseURL() string {
	base := os.Getenv("FEST_API_BASE_URL")
	if base == "" {
		base = "http://localhost:5000"
	}
	return base
}

const (
	// Per-day price of a non-participant visitor pass.
	VISITOR_PASS_DAY_RATE = 69

	// Delay between a state mutation and its storage write.
	STORE_DEBOUNCE = 500 * time.Millisecond

	// Tab-scoped session lifetime; all per-session keys expire with it.
	CHECKOUT_SESSION_TTL = 2 * time.Hour

	DEFAULT_CURRENCY = "INR"
)
