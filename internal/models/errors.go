package models

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	KindMarketData         FailureKind = "MARKET_DATA_UNAVAILABLE"
	KindInsufficientBudget FailureKind = "INSUFFICIENT_BUDGET"
	KindSubMinimumOrder    FailureKind = "SUB_MINIMUM_ORDER"
	KindVenueRejected      FailureKind = "VENUE_REJECTED"
	KindVenueTimeout       FailureKind = "VENUE_TIMEOUT"
	KindLedgerIO           FailureKind = "LEDGER_IO"
	KindLedgerConflict     FailureKind = "LEDGER_CONFLICT"
)

// Failure помечает ошибку видом из набора выше, чтобы вызывающий код
// ветвился по виду, а не разбирал текст сообщения.
type Failure struct {
	Kind   FailureKind
	Symbol string
	Err    error
}

func (f *Failure) Error() string {
	if f.Symbol != "" {
		return fmt.Sprintf("%s [%s]: %v", f.Kind, f.Symbol, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func NewFailure(kind FailureKind, symbol string, err error) *Failure {
	return &Failure{Kind: kind, Symbol: symbol, Err: err}
}

func Failf(kind FailureKind, symbol, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Symbol: symbol, Err: fmt.Errorf(format, args...)}
}

func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

func HasKind(err error, kind FailureKind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}

// IsSkip отделяет ожидаемые исходы управления потоком (недостаток
// бюджета, объём ниже биржевого минимума) от настоящих ошибок.
func IsSkip(err error) bool {
	return HasKind(err, KindInsufficientBudget) || HasKind(err, KindSubMinimumOrder)
}
