package mossgarden

import (
	"os"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"
)

var conf *viper.Viper
var confMutex = &deadlock.Mutex{}

// MakeOrGetConfig returns the global config, creating an empty one if none has been set.
func MakeOrGetConfig() *viper.Viper {
	confMutex.Lock()
	defer confMutex.Unlock()
	if conf == nil {
		conf = viper.New()
		setDefaults(conf)
	}
	return conf
}

func SetConfig(config *viper.Viper) {
	confMutex.Lock()
	defer confMutex.Unlock()
	conf = config
}

type State struct {
	StartedAt time.Time
	Shutdown  chan struct{}
}

var currentState = State{}
var stateMutex = &deadlock.Mutex{}

func Shutdown() {
	LogCLI("Calling Shutdown", 2)
	stateMutex.Lock()
	shutdown := currentState.Shutdown
	stateMutex.Unlock()
	if shutdown == nil {
		return
	}
	select {
	case <-shutdown:
		return
	default:
		close(shutdown)
	}
	go func() {
		LogCLI("Shutting down. If any Mind fails to close gracefully within 120 seconds the process will exit anyway.", 4)
		time.Sleep(time.Second * 120)
		println("Something didn't shutdown cleanly, check the data directory before restarting.")
		os.Exit(0)
	}()
}

func RegisterShutdownChan(shutdown chan struct{}) {
	stateMutex.Lock()
	defer stateMutex.Unlock()
	currentState.Shutdown = shutdown
	currentState.StartedAt = time.Now()
}

func CurrentState() State {
	stateMutex.Lock()
	defer stateMutex.Unlock()
	return currentState
}
