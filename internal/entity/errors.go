package entity

import "fmt"

// OutOfRangeError reports a timestamp outside the resolvable window
// (before the deployment block or after the chain head).
type OutOfRangeError struct {
	Timestamp        int64
	GenesisTimestamp int64
	HeadTimestamp    int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("timestamp %d outside resolvable range [%d, %d]",
		e.Timestamp, e.GenesisTimestamp, e.HeadTimestamp)
}

// UnsupportedRangeError reports a day window with no registered preset.
type UnsupportedRangeError struct {
	Days int
}

func (e *UnsupportedRangeError) Error() string {
	return fmt.Sprintf("unsupported day range: %d", e.Days)
}

// UpstreamUnavailableError reports an RPC or oracle endpoint that stayed
// unreachable after retries.
type UpstreamUnavailableError struct {
	Op  string
	Err error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable during %s: %v", e.Op, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// PriceUnavailableError reports a missing or zero USD price. The yield
// calculator fails closed on this instead of substituting zero.
type PriceUnavailableError struct {
	Symbol string
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("USD price unavailable for %s", e.Symbol)
}

// StructuralError reports malformed request input (bad address, bad block
// list shape). It always maps to a client error at the HTTP boundary.
type StructuralError struct {
	Field  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
