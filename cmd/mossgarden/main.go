package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"

	"mossgarden/consensus/conductor"
	"mossgarden/database"
	"mossgarden/messaging/eventcatcher"
	"mossgarden/messaging/eventers"
	"mossgarden/messaging/nostrelay"
	"mossgarden/mossgarden"
)

func main() {
	delve := false //problem: keep forgetting to turn this off after debug
	deadlock.Opts.DisableLockOrderDetection = true
	deadlock.Opts.DeadlockTimeout = time.Millisecond * 30000

	// Settings live in a Viper config which is created and populated with defaults on first run.
	conf := viper.New()
	mossgarden.InitConfig(conf)
	mossgarden.SetConfig(conf)
	if mossgarden.MakeOrGetConfig().GetBool("firstRun") {
		scanner := bufio.NewScanner(strings.NewReader(mossgarden.Banner()))
		for scanner.Scan() {
			time.Sleep(time.Millisecond * 127)
			fmt.Println(scanner.Text())
		}
		fmt.Println()
	} else {
		fmt.Printf("\n%s\n", mossgarden.Banner())
	}

	// the terminator channel blocks until shutdown, anything requiring a clean shutdown should
	// wait on this channel and clean up when it stops blocking.
	terminator := make(chan struct{})

	// anything requiring a clean shutdown (databases etc) adds to this waitgroup and removes
	// itself when it has cleanly shut down.
	wg := &sync.WaitGroup{}

	// interrupt: see cliListener
	interrupt := make(chan struct{})

	if delve {
		// Breakpoints hold mutexes for longer than the deadlock detector tolerates.
		deadlock.Opts.Disable = true
	}
	if !delve {
		go cliListener(interrupt)
	}
	mossgarden.RegisterShutdownChan(interrupt)
	mossgarden.LogCLI("Waiting for terminate signal, press q to quit", 4)

	// Minds are something like Actors in the Actor model https://en.wikipedia.org/wiki/Actor_model
	// they have their own state ("Mind-state") and update it when they receive a Nostr Event.
	go startMinds(terminator, wg)

	<-interrupt
	mossgarden.MakeOrGetConfig().Set("firstRun", false)
	if err := mossgarden.MakeOrGetConfig().WriteConfig(); err != nil {
		mossgarden.LogCLI(err.Error(), 3)
	}
	close(terminator)
	wg.Wait()
	if path, err := database.Backup(); err != nil {
		mossgarden.LogCLI(err.Error(), 2)
	} else {
		mossgarden.LogCLI("Mind-state backed up to "+path, 4)
	}
	os.Exit(0)
}

// startMinds: Any Minds that need to be running during normal operation
// should be called directly or indirectly from here.
func startMinds(terminator chan struct{}, wg *sync.WaitGroup) {
	conductor.Start(terminator, wg, nostrelay.NewSink())
	nostrelay.StartDb(terminator, wg, conductor.HandleMessage)
	eventcatcher.Start(terminator, wg, conductor.HandleMessage)
	eventers.Start()
}
