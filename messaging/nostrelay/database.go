package nostrelay

import (
	"os"
	"sync"

	"github.com/sasha-s/go-deadlock"
	"github.com/stackerstan/go-nostr"

	"mossgarden/database"
	"mossgarden/mossgarden"
)

// db caches every Event we accepted or published so it can be republished later.
type db struct {
	data  map[mossgarden.S256Hash]nostr.Event
	mutex *deadlock.Mutex
}

var currentState = db{
	data:  make(map[mossgarden.S256Hash]nostr.Event),
	mutex: &deadlock.Mutex{},
}

// StartDb starts the event cache and then the relay itself. It blocks until the cache is ready to use.
func StartDb(terminate chan struct{}, wg *sync.WaitGroup, handler Handler) {
	ready := make(chan struct{})
	go start(terminate, wg, ready)
	<-ready
	mossgarden.LogCLI("Nostrelay database has started", 4)
	go Start(handler)
}

func start(terminate chan struct{}, wg *sync.WaitGroup, ready chan struct{}) {
	wg.Add(1)
	if c, ok := database.Open("nostrelay", "current"); ok {
		currentState.restoreFromDisk(c)
	}
	close(ready)
	<-terminate
	persist()
	wg.Done()
	mossgarden.LogCLI("Nostrelay database has shut down", 4)
}

func (s *db) restoreFromDisk(f *os.File) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	err := json.NewDecoder(f).Decode(&s.data)
	if err != nil && err.Error() != "EOF" {
		mossgarden.LogCLI(err.Error(), 0)
	}
	if err := f.Close(); err != nil {
		mossgarden.LogCLI(err.Error(), 1)
	}
}

func CacheEventLocally(e nostr.Event) {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	if _, exists := currentState.data[e.ID]; !exists {
		currentState.data[e.ID] = e
	}
}

func FetchLocalCachedEvent(id mossgarden.S256Hash) (nostr.Event, bool) {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	e, ok := currentState.data[id]
	return e, ok
}

func persist() {
	if len(mossgarden.MakeOrGetConfig().GetString("rootDir")) == 0 {
		return
	}
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	b, err := json.MarshalIndent(currentState.data, "", " ")
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return
	}
	if err := database.Write("nostrelay", "current", b); err != nil {
		mossgarden.LogCLI(err.Error(), 2)
	}
}

// RepublishEverything queues every cached event for the relay pool again.
func RepublishEverything() {
	currentState.mutex.Lock()
	var events []nostr.Event
	for _, event := range currentState.data {
		events = append(events, event)
	}
	currentState.mutex.Unlock()
	for _, event := range events {
		PublishEvent(event)
	}
}
