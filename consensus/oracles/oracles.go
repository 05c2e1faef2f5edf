// Package oracles holds the set of oracle keys allowed to issue location proofs.
package oracles

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/cast"

	"mossgarden/mossgarden"
)

type Authority struct {
	allowed map[string]struct{}
	mutex   *deadlock.RWMutex
}

func NewAuthority(oracles ...string) *Authority {
	a := &Authority{
		allowed: make(map[string]struct{}),
		mutex:   &deadlock.RWMutex{},
	}
	a.Replace(oracles)
	return a
}

// FromConfig builds an Authority from the oracles config key. Invalid keys are logged and skipped.
func FromConfig() *Authority {
	raw := mossgarden.MakeOrGetConfig().Get("oracles")
	keys, err := cast.ToStringSliceE(raw)
	if err != nil {
		mossgarden.LogCLI("oracles: "+err.Error(), 2)
	}
	a := NewAuthority(keys...)
	if len(a.List()) == 0 {
		mossgarden.LogCLI("no oracles are configured, every location proof will be rejected", 2)
	}
	return a
}

func (a *Authority) IsAuthorized(oracle string) bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	_, ok := a.allowed[strings.ToLower(oracle)]
	return ok
}

// Replace swaps the whole allowed set.
func (a *Authority) Replace(oracles []string) {
	next := make(map[string]struct{})
	for _, o := range oracles {
		o = strings.ToLower(strings.TrimSpace(o))
		if !validKey(o) {
			mossgarden.LogCLI("ignoring invalid oracle key "+o, 2)
			continue
		}
		next[o] = struct{}{}
	}
	a.mutex.Lock()
	a.allowed = next
	a.mutex.Unlock()
}

func (a *Authority) List() (oracles []string) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	for o := range a.allowed {
		oracles = append(oracles, o)
	}
	sort.Strings(oracles)
	return
}

// validKey accepts 32 byte x-only public keys in hex.
func validKey(k string) bool {
	if len(k) != 64 {
		return false
	}
	_, err := hex.DecodeString(k)
	return err == nil
}
