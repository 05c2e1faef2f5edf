package ledger

import (
	"mossgarden/mossgarden"
)

type Balance struct {
	Account  mossgarden.Account
	Tokens   uint64
	Minted   uint64 // lifetime harvest rewards received
	Spent    uint64 // lifetime charges paid
	Sequence int64
}
