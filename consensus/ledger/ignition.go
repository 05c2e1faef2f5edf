package ledger

import (
	"github.com/spf13/cast"

	"mossgarden/mossgarden"
)

// ignite seeds the ledger from the ignitionBalances config map (account -> tokens). It only runs
// against an empty ledger so restarting never mints twice. It returns the number of accounts funded.
func (l *Ledger) ignite(raw interface{}) int {
	if raw == nil {
		return 0
	}
	balances, err := cast.ToStringMapE(raw)
	if err != nil {
		mossgarden.LogCLI("ignitionBalances: "+err.Error(), 2)
		return 0
	}
	l.mutex.Lock()
	empty := len(l.data) == 0
	l.mutex.Unlock()
	if !empty {
		return 0
	}
	var funded int
	for account, v := range balances {
		tokens, err := cast.ToUint64E(v)
		if err != nil {
			mossgarden.LogCLI("ignitionBalances["+account+"]: "+err.Error(), 2)
			continue
		}
		if err := l.Mint(account, tokens); err != nil {
			mossgarden.LogCLI(err.Error(), 2)
			continue
		}
		funded++
	}
	return funded
}
