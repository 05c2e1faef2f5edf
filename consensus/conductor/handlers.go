package conductor

import (
	"fmt"

	"mossgarden/consensus/genomes"
	"mossgarden/consensus/sequence"
	"mossgarden/consensus/stones"
	"mossgarden/mossgarden"
)

var bloom = mossgarden.MakeNewInverseBloomFilter(10000)

// HandleMessage is the entry point for all messages into the conductor
func HandleMessage(e mossgarden.Event) (h mossgarden.HashSeq, b bool) {
	<-ready
	if _, ok := mossgarden.WhichMindForKind(e.Kind); !ok {
		return
	}
	if ok, err := e.CheckSignature(); !ok {
		if err != nil {
			mossgarden.LogCLI(err.Error(), 3)
		}
		mossgarden.LogCLI("invalid signature on event "+e.ID, 3)
		return
	}
	es := e.Sequence()
	cs := sequence.LockSequence(e.PubKey)
	if es == cs+1 {
		if bloom(e.ID) {
			if hs, ok := handleEvent(e); ok {
				if err := sequence.UnlockSequence(e.PubKey, es); err != nil {
					mossgarden.LogCLI(err.Error(), 1)
				}
				hs.EventID = e.ID
				return hs, ok
			}
		}
	} else {
		mossgarden.LogCLI(fmt.Sprintf("invalid sequence number on event %s, current sequence is %d", e.ID, cs), 3)
	}
	if err := sequence.UnlockSequence(e.PubKey, 0); err != nil {
		mossgarden.LogCLI(err.Error(), 1)
	}
	return h, false
}

func handleEvent(e mossgarden.Event) (h mossgarden.HashSeq, b bool) {
	mind, ok := mossgarden.WhichMindForKind(e.Kind)
	if !ok {
		return
	}
	switch mind {
	case "genomes":
		return genomes.HandleEvent(e)
	case "stones":
		return stones.HandleEvent(e)
	}
	return
}
