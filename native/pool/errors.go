package pool

import "errors"

var (
	errNilState = errors.New("pool engine: state not configured")

	// ErrPoolNotFound indicates the supplied pool ID does not resolve to a
	// stored pool.
	ErrPoolNotFound = errors.New("pool: not found")
	// ErrZeroAmount indicates an amount that must be strictly positive was
	// zero or negative.
	ErrZeroAmount = errors.New("pool: amount must be positive")
	// ErrValueMismatch indicates the attached native value did not match the
	// declared amount (or was non-zero for a token-priced pool).
	ErrValueMismatch = errors.New("pool: attached value mismatch")
	// ErrSlippage indicates a computed amount fell outside the caller's
	// min/max bound.
	ErrSlippage = errors.New("pool: slippage bound exceeded")
	// ErrInsufficientReserves indicates the requested output meets or
	// exceeds the available fractional reserves.
	ErrInsufficientReserves = errors.New("pool: insufficient reserves")
	// ErrNoLiquidity indicates a quote that divides by reserves or share
	// supply was requested against an empty pool.
	ErrNoLiquidity = errors.New("pool: no liquidity")
	// ErrInsufficientBalance indicates a fractional-ledger debit exceeded the
	// source balance.
	ErrInsufficientBalance = errors.New("pool: insufficient fractional balance")
	// ErrInsufficientShares indicates a share burn exceeded the caller's
	// share balance.
	ErrInsufficientShares = errors.New("pool: insufficient share balance")
	// ErrInsufficientFunds indicates a base-asset debit exceeded the source
	// balance.
	ErrInsufficientFunds = errors.New("pool: insufficient base funds")
	// ErrProofCount indicates the number of proofs did not match the number
	// of item identifiers.
	ErrProofCount = errors.New("pool: proof count mismatch")
	// ErrProofInvalid indicates an item identifier's membership proof did not
	// verify against the allow-list root.
	ErrProofInvalid = errors.New("pool: invalid allow-list proof")
	// ErrNotItemOwner indicates an item transfer was attempted by a party
	// that does not own the item.
	ErrNotItemOwner = errors.New("pool: transferor does not own item")
	// ErrPoolClosed indicates the operation requires an open pool.
	ErrPoolClosed = errors.New("pool: closed")
	// ErrNotClosed indicates a withdrawal was attempted before any close was
	// requested.
	ErrNotClosed = errors.New("pool: close not requested")
	// ErrGracePeriodActive indicates a withdrawal was attempted before the
	// grace period elapsed.
	ErrGracePeriodActive = errors.New("pool: grace period not elapsed")
	// ErrUnauthorized indicates a privileged operation was attempted by a
	// caller other than the registry owner.
	ErrUnauthorized = errors.New("pool: unauthorized")
)
