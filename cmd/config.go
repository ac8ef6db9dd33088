package cmd

import "time"

// Config carries everything the composition root needs to assemble the
// dispatch engine. Values come from the environment; see cmd/app.
type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	RedisAddr     string
	RedisPassword string

	// NotificationQueueSize bounds the buffered notification sink.
	// Zero selects the sink's default.
	NotificationQueueSize int

	// Dispatch timings. OrderDeadline zero disables the order-level
	// deadline.
	OfferTTL         time.Duration
	RetryCooldown    time.Duration
	MaxCycles        int
	OrderDeadline    time.Duration
	CommitMaxRetries uint64
}
