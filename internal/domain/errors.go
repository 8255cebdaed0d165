package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Every user-visible
// failure carries its specific reason so the dashboard can explain why.

var (
	// Registration errors
	ErrAlreadyRegistered = errors.New("address already registered")
	ErrInvalidSponsor    = errors.New("sponsor not found or inactive")
	ErrInvalidPackage    = errors.New("unknown package tier")
	ErrUserNotFound      = errors.New("user not found")

	// Commission errors
	ErrInsufficientFunds = errors.New("payment amount not received")
	ErrInvalidUpgrade    = errors.New("upgrade tier must exceed current tier")

	// Pool errors
	ErrPoolEmpty         = errors.New("pool balance is zero")
	ErrNotEligiblePeriod = errors.New("distribution period has not elapsed")
	ErrUnknownPool       = errors.New("unknown pool")
	ErrNoEligibleUsers   = errors.New("no users qualify for distribution")

	// Withdrawal errors
	ErrInsufficientWithdrawable = errors.New("amount exceeds withdrawable balance")
	ErrBelowMinimum             = errors.New("amount below minimum withdrawal")
	ErrRateLimited              = errors.New("withdrawal interval has not elapsed")

	// Backend errors
	ErrChainUnavailable = errors.New("chain gateway unreachable after retries")
	ErrReadOnlyBackend  = errors.New("operation not supported on relay backend")

	// Role errors
	ErrRoleDenied = errors.New("address does not hold the required role")
)
