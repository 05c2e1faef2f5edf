package eventcatcher

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stackerstan/go-nostr"

	"mossgarden/messaging/nostrelay"
	"mossgarden/mossgarden"
)

// Start subscribes to every relay in relaysMust and relaysOptional and feeds the Events
// for our registered Kinds into handler until terminate is closed.
func Start(terminate chan struct{}, wg *sync.WaitGroup, handler nostrelay.Handler) {
	relays := mossgarden.MakeOrGetConfig().GetStringSlice("relaysMust")
	relays = append(relays, mossgarden.MakeOrGetConfig().GetStringSlice("relaysOptional")...)
	if len(relays) == 0 {
		mossgarden.LogCLI("no relays configured, the Event catcher will not start", 2)
		return
	}
	kinds := inboundKinds()
	if len(kinds) == 0 {
		mossgarden.LogCLI("no Kinds are registered yet, start the Minds before the Event catcher", 1)
		return
	}
	mossgarden.LogCLI("Starting the Event catcher", 4)
	pool := nostr.NewRelayPool()
	for _, s := range relays {
		errchan := pool.Add(s, nostr.SimplePolicy{Read: true, Write: false})
		go func(relay string) {
			for err := range errchan {
				mossgarden.LogCLI(fmt.Sprintf("%s: %s", relay, err.Error()), 2)
			}
		}(s)
	}
	_, evts, unsub := pool.Sub(nostr.Filters{{Kinds: kinds}})
	wg.Add(1)
	go func() {
		defer wg.Done()
		catch(nostr.Unique(evts), terminate, handler)
		unsub()
		for _, s := range relays {
			pool.Remove(s)
		}
		mossgarden.LogCLI("Event catcher has stopped", 4)
	}()
}

// catch hands every correctly signed Event to handler until terminate is closed or evts is drained.
func catch(evts <-chan nostr.Event, terminate chan struct{}, handler nostrelay.Handler) (handled int) {
	for {
		select {
		case <-terminate:
			return
		case e, ok := <-evts:
			if !ok {
				return
			}
			if sigOk, _ := e.CheckSignature(); !sigOk {
				mossgarden.LogCLI("dropping event with an invalid signature from relay: "+e.ID, 3)
				continue
			}
			if _, changed := handler(mossgarden.ConvertToInternalEvent(&e)); changed {
				handled++
				nostrelay.CacheEventLocally(e)
			}
		case <-time.After(time.Minute * 10):
			mossgarden.LogCLI("no events from relays in the last 10 minutes", 5)
		}
	}
}

// inboundKinds lists the request Kinds the Minds have registered. Kinds we publish ourselves
// (645100 and up) are excluded so we do not feed our own output back in.
func inboundKinds() (kinds []int) {
	for k := range mossgarden.GetAllKinds() {
		if k >= mossgarden.KindGenomeCreated-100 && k < mossgarden.KindGenomeCreated {
			kinds = append(kinds, int(k))
		}
	}
	sort.Ints(kinds)
	return
}
