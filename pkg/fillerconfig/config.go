// Package fillerconfig holds the filler's runtime configuration structs
// (spec.md §3 FillerConfig) and their defaults. Grounded on
// pkg/config/anchor_config.go's flat, YAML-tagged settings structs with a
// matching Default* constructor per struct. TOML/CLI parsing of these
// values into a FillerConfig is an external collaborator (spec.md §1
// Non-goals) — this package only defines the shape and sane defaults.
package fillerconfig

import (
	"time"

	"github.com/hyperfill/intent-filler/pkg/confirmation"
)

// RetryConfig governs scheduler re-queueing of transiently-failed orders.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

// DefaultRetryConfig matches spec.md §4.7's retry semantics.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 2 * time.Second,
	}
}

// PendingQueueConfig governs how often and how many times the scheduler
// rechecks a Pending order's confirmation status.
type PendingQueueConfig struct {
	RecheckDelay time.Duration `yaml:"recheck_delay"`
	MaxRechecks  int           `yaml:"max_rechecks"`
}

// DefaultPendingQueueConfig matches spec.md §4.7 (30s / 10 rechecks).
func DefaultPendingQueueConfig() PendingQueueConfig {
	return PendingQueueConfig{
		RecheckDelay: 30 * time.Second,
		MaxRechecks:  10,
	}
}

// CancellerConfig governs the redeem-escrow cancellation state machine's
// polling cadence and receipt-submission retry policy.
type CancellerConfig struct {
	PollDelay         time.Duration `yaml:"poll_delay"`
	ReceiptWaitBefore time.Duration `yaml:"receipt_wait_before"`
	ReceiptRetryCount int           `yaml:"receipt_retry_count"`
	ReceiptRetryBase  time.Duration `yaml:"receipt_retry_base"`
}

// DefaultCancellerConfig matches spec.md §4.8's named constants: 10s
// polling, a 30s wait before the first receipt poll, and 10 retries at an
// exponential backoff starting from 5s.
func DefaultCancellerConfig() CancellerConfig {
	return CancellerConfig{
		PollDelay:         10 * time.Second,
		ReceiptWaitBefore: 30 * time.Second,
		ReceiptRetryCount: 10,
		ReceiptRetryBase:  5 * time.Second,
	}
}

// GatewayConfig governs IntentGateway's estimate_gas_for_post simulation.
type GatewayConfig struct {
	// SimulationTreeSize is the width of the Merkle tree the real
	// PostRequest commitment is padded into before simulating
	// handlePostRequests, so the simulated proof depth resembles a real
	// overlay-root batch rather than a single-leaf tree (spec.md §4.3).
	SimulationTreeSize int `yaml:"simulation_tree_size"`
}

// DefaultGatewayConfig matches the batch width pkg/contractsvc's fallback
// gas figures were calibrated against.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{SimulationTreeSize: 16}
}

// FillerConfig is the top-level runtime configuration for the scheduler
// and the components it drives.
type FillerConfig struct {
	ConfirmationPolicy  *confirmation.Policy `yaml:"-"`
	MaxConcurrentOrders int                  `yaml:"max_concurrent_orders"`
	PendingQueue        PendingQueueConfig   `yaml:"pending_queue"`
	Retry               RetryConfig          `yaml:"retry"`
}

// DefaultFillerConfig matches spec.md §4.7's default maxConcurrentOrders=16.
// The caller must still supply a ConfirmationPolicy built from per-chain
// ChainRegistry facts.
func DefaultFillerConfig(policy *confirmation.Policy) FillerConfig {
	return FillerConfig{
		ConfirmationPolicy:  policy,
		MaxConcurrentOrders: 16,
		PendingQueue:        DefaultPendingQueueConfig(),
		Retry:               DefaultRetryConfig(),
	}
}
