package sequence

import (
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

type db struct {
	data   map[mossgarden.Account]Sequence
	mutex  *deadlock.Mutex
	locked mossgarden.Account
}

var currentState = db{
	data:  make(map[mossgarden.Account]Sequence),
	mutex: &deadlock.Mutex{},
}

// StartDb starts the database for this mind (the Mind-state). It blocks until the database is ready to use.
func StartDb(terminate chan struct{}, wg *sync.WaitGroup) {
	ready := make(chan struct{})
	go start(terminate, wg, ready)
	<-ready
	mossgarden.LogCLI("Sequence Mind has started", 4)
}

func start(terminate chan struct{}, wg *sync.WaitGroup, ready chan struct{}) {
	wg.Add(1)
	if c, ok := database.Open("sequence", "current"); ok {
		currentState.restoreFromDisk(c)
	}
	close(ready)
	<-terminate
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.takeSnapshot()
	wg.Done()
	mossgarden.LogCLI("Sequence Mind has shut down", 4)
}

func (s *db) restoreFromDisk(f *os.File) {
	s.mutex.Lock()
	err := json.NewDecoder(f).Decode(&s.data)
	if err != nil && err.Error() != "EOF" {
		mossgarden.LogCLI(err.Error(), 0)
	}
	s.mutex.Unlock()
	if err := f.Close(); err != nil {
		mossgarden.LogCLI(err.Error(), 1)
	}
}

// takeSnapshot calculates a hash (and gets the total sequence) at the current state and stores it. Caller holds the mutex.
func (s *db) takeSnapshot() mossgarden.HashSeq {
	hs := hashSeq(s.data)
	if len(mossgarden.MakeOrGetConfig().GetString("rootDir")) == 0 {
		return hs
	}
	b, err := json.MarshalIndent(s.data, "", " ")
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return hs
	}
	for _, name := range []string{hs.Hash, "current"} {
		if err := database.Write("sequence", name, b); err != nil {
			mossgarden.LogCLI(err.Error(), 2)
		}
	}
	return hs
}

func hashSeq(m map[mossgarden.Account]Sequence) (hs mossgarden.HashSeq) {
	hs.Mind = "sequence"
	var accounts []mossgarden.Account
	for account := range m {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i] > accounts[j]
	})
	for _, account := range accounts {
		seq := m[account]
		hs.Sequence += seq.Sequence
		for _, d := range []interface{}{seq.Account, seq.Sequence} {
			if err := hs.AppendData(d); err != nil {
				mossgarden.LogCLI(err.Error(), 1)
			}
		}
	}
	hs.S256()
	hs.CreatedAt = time.Now().Unix()
	return
}

func AllSequences() (s []Sequence) {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	for _, sequence := range currentState.data {
		s = append(s, sequence)
	}
	sort.Slice(s, func(i, j int) bool {
		return s[i].Account < s[j].Account
	})
	return
}
