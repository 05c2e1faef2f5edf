package ledger

import (
	"math"
	"os"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"mossgarden/database"
	"mossgarden/mossgarden"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ledger holds token balances. It is the in-process PaymentLedger and TokenMinter.
type Ledger struct {
	data    map[mossgarden.Account]Balance
	mutex   *deadlock.Mutex
	persist bool
}

func New() *Ledger {
	return &Ledger{
		data:  make(map[mossgarden.Account]Balance),
		mutex: &deadlock.Mutex{},
	}
}

var currentState = &Ledger{
	data:    make(map[mossgarden.Account]Balance),
	mutex:   &deadlock.Mutex{},
	persist: true,
}

// Current returns the Ledger that backs the running Mind.
func Current() *Ledger {
	return currentState
}

// StartDb starts the database for this mind (the Mind-state). It blocks until the database is ready to use.
func StartDb(terminate chan struct{}, wg *sync.WaitGroup) {
	ready := make(chan struct{})
	go start(terminate, wg, ready)
	<-ready
	mossgarden.LogCLI("Ledger Mind has started", 4)
}

func start(terminate chan struct{}, wg *sync.WaitGroup, ready chan struct{}) {
	wg.Add(1)
	if c, ok := database.Open("ledger", "current"); ok {
		currentState.restoreFromDisk(c)
	}
	if n := currentState.ignite(mossgarden.MakeOrGetConfig().Get("ignitionBalances")); n > 0 {
		mossgarden.LogCLI("Ledger: created ignition balances", 4)
	}
	close(ready)
	<-terminate
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.takeSnapshot()
	wg.Done()
	mossgarden.LogCLI("Ledger Mind has shut down", 4)
}

func (l *Ledger) restoreFromDisk(f *os.File) {
	l.mutex.Lock()
	err := json.NewDecoder(f).Decode(&l.data)
	if err != nil && err.Error() != "EOF" {
		mossgarden.LogCLI(err.Error(), 0)
	}
	l.mutex.Unlock()
	if err := f.Close(); err != nil {
		mossgarden.LogCLI(err.Error(), 1)
	}
}

// takeSnapshot hashes the balances and, for the running Mind, stores them. Caller holds the mutex.
func (l *Ledger) takeSnapshot() mossgarden.HashSeq {
	hs := hashSeq(l.data)
	if !l.persist || len(mossgarden.MakeOrGetConfig().GetString("rootDir")) == 0 {
		return hs
	}
	b, err := json.MarshalIndent(l.data, "", " ")
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return hs
	}
	for _, name := range []string{hs.Hash, "current"} {
		if err := database.Write("ledger", name, b); err != nil {
			mossgarden.LogCLI(err.Error(), 2)
		}
	}
	return hs
}

func hashSeq(m map[mossgarden.Account]Balance) (hs mossgarden.HashSeq) {
	hs.Mind = "ledger"
	var accounts []mossgarden.Account
	for account := range m {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i] > accounts[j]
	})
	for _, account := range accounts {
		b := m[account]
		hs.Sequence += b.Sequence
		for _, d := range []interface{}{b.Account, b.Tokens, b.Minted, b.Spent} {
			if err := hs.AppendData(d); err != nil {
				mossgarden.LogCLI(err.Error(), 1)
			}
		}
	}
	hs.S256()
	hs.CreatedAt = time.Now().Unix()
	return
}

// Charge debits amount from payer.
func (l *Ledger) Charge(payer mossgarden.Account, amount uint64) error {
	if len(payer) == 0 {
		return ErrZeroAccount
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	b := l.data[payer]
	if b.Tokens < amount {
		return ErrInsufficientFunds
	}
	b.Account = payer
	b.Tokens -= amount
	b.Spent = saturatingAdd(b.Spent, amount)
	b.Sequence++
	l.data[payer] = b
	l.takeSnapshot()
	return nil
}

// Mint creates amount new tokens for recipient.
func (l *Ledger) Mint(recipient mossgarden.Account, amount uint64) error {
	if len(recipient) == 0 {
		return ErrZeroAccount
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	b := l.data[recipient]
	if b.Tokens > math.MaxUint64-amount {
		return ErrOverflow
	}
	b.Account = recipient
	b.Tokens += amount
	b.Minted = saturatingAdd(b.Minted, amount)
	b.Sequence++
	l.data[recipient] = b
	l.takeSnapshot()
	return nil
}

// Settle charges payer amount and pays out shares of it in one step. Either every balance changes or none do.
// Whatever amount the payouts do not cover is spent.
func (l *Ledger) Settle(payer mossgarden.Account, amount uint64, payouts map[mossgarden.Account]uint64) error {
	if len(payer) == 0 {
		return ErrZeroAccount
	}
	var total uint64
	for recipient, share := range payouts {
		if len(recipient) == 0 {
			return ErrZeroAccount
		}
		if total > math.MaxUint64-share {
			return ErrOverflow
		}
		total += share
	}
	if total > amount {
		return ErrUnbalanced
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	staged := make(map[mossgarden.Account]Balance, len(payouts)+1)
	balance := func(account mossgarden.Account) Balance {
		if b, ok := staged[account]; ok {
			return b
		}
		b := l.data[account]
		b.Account = account
		return b
	}
	p := balance(payer)
	if p.Tokens < amount {
		return ErrInsufficientFunds
	}
	p.Tokens -= amount
	p.Spent = saturatingAdd(p.Spent, amount)
	p.Sequence++
	staged[payer] = p
	for recipient, share := range payouts {
		if share == 0 {
			continue
		}
		b := balance(recipient)
		if b.Tokens > math.MaxUint64-share {
			return ErrOverflow
		}
		b.Tokens += share
		b.Sequence++
		staged[recipient] = b
	}
	for account, b := range staged {
		l.data[account] = b
	}
	l.takeSnapshot()
	return nil
}

func (l *Ledger) Balance(account mossgarden.Account) uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.data[account].Tokens
}

func (l *Ledger) All() (balances []Balance) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for _, b := range l.data {
		balances = append(balances, b)
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Account < balances[j].Account
	})
	return
}

func (l *Ledger) HashOfCurrentState() mossgarden.S256Hash {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return hashSeq(l.data).Hash
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func GetBalance(account mossgarden.Account) uint64 {
	return currentState.Balance(account)
}

func AllBalances() []Balance {
	return currentState.All()
}
