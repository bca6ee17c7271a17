package ledger

import "time"

// Clock supplies the ledger's notion of now. The accrual formula requires a
// non-decreasing clock; production uses the system clock, tests substitute
// a fake to advance time deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

var SystemClock Clock = systemClock{}
