package runner

import (
	"errors"
	"fmt"
)

var (
	ErrLockContention  = errors.New("lock contention")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrGateway         = errors.New("gateway error")
	ErrFillTimeout     = errors.New("fill timeout")
	ErrTpSlMismatch    = errors.New("tp/sl mismatch")
)

// TradeError: структурированный отказ Execute. Kind: один из Err* выше.
type TradeError struct {
	Op     string
	Symbol string
	Kind   error
	Cause  error
}

func newTradeError(op, symbol string, kind, cause error) *TradeError {
	return &TradeError{Op: op, Symbol: symbol, Kind: kind, Cause: cause}
}

func (e *TradeError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Symbol, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Symbol, e.Kind, e.Cause)
}

func (e *TradeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// KindOf возвращает Kind из цепочки или nil.
func KindOf(err error) error {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind
	}
	return nil
}
