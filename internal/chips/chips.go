// Package chips handles chip amounts. Internally every amount is an int64 in
// the smallest unit; on the wire amounts travel as decimal strings so clients
// can treat them as arbitrary-precision integers.
package chips

import (
	"errors"
	"fmt"
	"math/big"
)

// Amount is a quantity of chips in the smallest unit. Amounts are never
// negative; signed values appear only in settlement deltas (see Delta).
type Amount = int64

// Delta is a signed chip movement used in zero-sum settlements.
type Delta = int64

var (
	ErrNegative = errors.New("chips: negative amount")
	ErrOverflow = errors.New("chips: amount exceeds int64 range")
	ErrSyntax   = errors.New("chips: malformed decimal string")
)

var maxInt64 = big.NewInt(0).SetUint64(1<<63 - 1)

// Parse converts a wire decimal string into an Amount. The wire format is
// arbitrary precision, so anything above int64 range is rejected rather than
// silently truncated.
func Parse(s string) (Amount, error) {
	n, ok := big.NewInt(0).SetString(s, 10)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	if n.Sign() < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNegative, s)
	}
	if n.Cmp(maxInt64) > 0 {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	return n.Int64(), nil
}

// Format renders an Amount as its wire decimal string.
func Format(a Amount) string {
	return fmt.Sprintf("%d", a)
}

// FormatDelta renders a signed settlement delta as its wire decimal string.
func FormatDelta(d Delta) string {
	return fmt.Sprintf("%d", d)
}
