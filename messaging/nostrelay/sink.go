package nostrelay

import (
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/stackerstan/go-nostr"

	"mossgarden/mossgarden"
)

// Sink signs DomainEvents with our wallet and publishes them to the relay pool.
type Sink struct {
	sign    func(kind int64, content string, tags nostr.Tags) (nostr.Event, error)
	publish func(e nostr.Event)
}

func NewSink() *Sink {
	return &Sink{sign: mossgarden.SignedEvent, publish: PublishEvent}
}

func (s *Sink) Publish(event mossgarden.DomainEvent) {
	content, err := json.Marshal(event)
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return
	}
	e, err := s.sign(event.EventKind(), string(content), nostr.Tags{[]string{"mind", "mossgarden"}})
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return
	}
	s.publish(e)
}

var publishQueue = make(chan nostr.Event, 1000)
var startedRelays bool
var relaysMutex = &deadlock.Mutex{}

// PublishEvent caches a signed event locally and queues it for the relays in relaysMust and relaysOptional.
func PublishEvent(event nostr.Event) {
	if ok, _ := event.CheckSignature(); !ok {
		mossgarden.LogCLI("invalid signature on event "+event.ID, 2)
		return
	}
	CacheEventLocally(event)
	notifyListeners(event)
	relaysMutex.Lock()
	if !startedRelays {
		startedRelays = true
		go startRelaysForPublishing()
	}
	relaysMutex.Unlock()
	select {
	case publishQueue <- event:
	default:
		mossgarden.LogCLI("publish queue is full, dropping "+event.ID+" (it is still cached locally)", 2)
	}
}

func startRelaysForPublishing() {
	relays := mossgarden.MakeOrGetConfig().GetStringSlice("relaysMust")
	relays = append(relays, mossgarden.MakeOrGetConfig().GetStringSlice("relaysOptional")...)
	pool := nostr.NewRelayPool()
	mossgarden.LogCLI("Connecting to relay pool", 3)
	for _, s := range relays {
		errchan := pool.Add(s, nostr.SimplePolicy{Read: true, Write: true})
		go func(relay string) {
			for err := range errchan {
				mossgarden.LogCLI(fmt.Sprintf("%s: %s", relay, err.Error()), 2)
			}
		}(s)
	}
	for event := range publishQueue {
		e := event
		if _, _, err := pool.PublishEvent(&e); err != nil {
			mossgarden.LogCLI("failed to publish "+e.ID+": "+err.Error(), 2)
		}
		time.Sleep(time.Second) //don't spam relays
	}
}
