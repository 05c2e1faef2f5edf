// Package eventers lets us compose State from any Mind(s) into Events to be consumed by the interfarce.
//all Events produce by the eventer are signed by our local wallet
//events produced by this package are answers to a subscription and are not sent to relays
package eventers

import (
	"github.com/spf13/cast"
	"github.com/stackerstan/go-nostr"

	jsoniter "github.com/json-iterator/go"

	"mossgarden/consensus/genomes"
	"mossgarden/consensus/ledger"
	"mossgarden/consensus/reviews"
	"mossgarden/consensus/stones"
	"mossgarden/messaging/nostrelay"
	"mossgarden/mossgarden"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	KindStones   int64 = 645199
	KindGenomes  int64 = 645299
	KindBalances int64 = 645399
)

func Start() {
	mossgarden.LogCLI("Starting the Event Producer. You should now be able to connect a frontend to this instance.", 4)
	go startResponding(nostrelay.SubscribeToRequests("eventer"))
}

func startResponding(subs chan nostrelay.Subscription) {
	for newSub := range subs {
		go handleSubscription(newSub)
	}
}

func handleSubscription(sub nostrelay.Subscription) {
	defer close(sub.Terminate)
	for _, filter := range sub.Filters {
		list, ok := filter.Tags["eventer"]
		if !ok || len(list) == 0 {
			continue
		}
		var events []nostr.Event
		switch list[0] {
		case "stones":
			events = allStones()
		case "stone":
			if len(list) > 1 {
				events = oneStone(list[1])
			}
		case "genomes":
			events = allGenomes()
		case "balances":
			events = allBalances()
		default:
			mossgarden.LogCLI("no eventer called "+list[0], 3)
		}
		for _, event := range events {
			sub.Events <- event
		}
		return
	}
}

// StoneView is a Stone as the frontend sees it.
type StoneView struct {
	stones.Stone
	StateName string
	TypeName  string
	Reviews   reviews.Summary
}

func view(st stones.Stone) StoneView {
	return StoneView{
		Stone:     st,
		StateName: st.State.String(),
		TypeName:  st.Type.String(),
		Reviews:   reviews.Summarize(st.Reviews),
	}
}

func allStones() []nostr.Event {
	var views []StoneView
	for _, st := range stones.All() {
		views = append(views, view(st))
	}
	return reply(KindStones, views, nil)
}

func oneStone(id mossgarden.S256Hash) []nostr.Event {
	st, ok := stones.Get(id)
	if !ok {
		return nil
	}
	return reply(KindStones, []StoneView{view(st)}, nostr.Tags{[]string{"e", id}})
}

func allGenomes() []nostr.Event {
	return reply(KindGenomes, genomes.All(), nil)
}

func allBalances() []nostr.Event {
	balances := make(map[mossgarden.Account]string)
	for _, b := range ledger.AllBalances() {
		// uint64 does not survive a javascript number
		balances[b.Account] = cast.ToString(b.Tokens)
	}
	return reply(KindBalances, balances, nil)
}

func reply(kind int64, content interface{}, tags nostr.Tags) (e []nostr.Event) {
	j, err := json.Marshal(content)
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return
	}
	event, err := mossgarden.SignedEvent(kind, string(j), tags)
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return
	}
	return append(e, event)
}
