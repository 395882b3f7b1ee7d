package presale

import "fmt"

// ExhaustedError is returned when an operation's retry budget is spent.
// It carries the last underlying failure.
type ExhaustedError struct {
	Op      string
	LastErr error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: retry budget exhausted: %v", e.Op, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }
