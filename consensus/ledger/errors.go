package ledger

import (
	"mossgarden/mossgarden"
)

var (
	ErrInsufficientFunds = mossgarden.NewFault(mossgarden.DependencyError, "insufficient funds")
	ErrZeroAccount       = mossgarden.NewFault(mossgarden.ValidationError, "account required")
	ErrOverflow          = mossgarden.NewFault(mossgarden.DependencyError, "balance overflow")
	ErrUnbalanced        = mossgarden.NewFault(mossgarden.ValidationError, "payouts exceed the amount paid")
)
