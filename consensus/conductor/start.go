package conductor

import (
	"sync"
	"time"

	"mossgarden/consensus/genomes"
	"mossgarden/consensus/geo"
	"mossgarden/consensus/ledger"
	"mossgarden/consensus/oracles"
	"mossgarden/consensus/sequence"
	"mossgarden/consensus/stones"
	"mossgarden/mossgarden"
)

var ready = make(chan struct{})

// Start starts every Mind and wires them to each other. Domain events are published to sink.
func Start(terminate chan struct{}, wg *sync.WaitGroup, sink mossgarden.EventSink) {
	mossgarden.LogCLI("Starting the Conductor service", 4)
	go start(terminate, wg, sink)
	<-ready
}

func start(terminate chan struct{}, wg *sync.WaitGroup, sink mossgarden.EventSink) {
	wg.Add(1)
	// Databases shut down only after everything else has.
	databaseWg := &sync.WaitGroup{}
	terminateDatabases := make(chan struct{})

	ledger.StartDb(terminateDatabases, databaseWg)
	sequence.StartDb(terminateDatabases, databaseWg)
	genomes.StartDb(terminateDatabases, databaseWg, sink)
	stones.StartDb(terminateDatabases, databaseWg, stones.Deps{
		Machine: &stones.Machine{
			Verifier: geo.VerifierFromConfig(geo.SignedProofDecoder{}, oracles.FromConfig()),
			Ledger:   ledger.Current(),
			Minter:   ledger.Current(),
			Policy:   stones.PolicyFromConfig(),
			Now:      time.Now,
		},
		Genomes: genomes.Get,
		Sink:    sink,
	})

	close(ready)
	mossgarden.LogCLI("Conductor: I'm now accepting Events", 4)
	<-terminate
	mossgarden.LogCLI("Conductor: I received terminate signal, shutting down", 4)
	close(terminateDatabases)
	databaseWg.Wait()
	mossgarden.LogCLI("Conductor: shutdown complete", 4)
	wg.Done()
}
