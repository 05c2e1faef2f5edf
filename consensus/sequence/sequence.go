package sequence

import (
	"fmt"

	"mossgarden/mossgarden"
)

type Sequence struct {
	Account  mossgarden.Account
	Sequence int64
}

//GetSequence SHOULD be called when producing an event locally.
//it MUST NOT be used to validate the current sequence.
func GetSequence(account mossgarden.Account) int64 {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	return currentState.data[account].Sequence
}

// LockSequence returns the current sequence of account and holds the Sequence Mind until UnlockSequence is called.
func LockSequence(account mossgarden.Account) int64 {
	currentState.mutex.Lock()
	currentState.locked = account
	return currentState.data[account].Sequence
}

// UnlockSequence releases the Sequence Mind. The account's sequence is advanced only if newSeq is the next
// sequence, pass 0 to release without advancing.
func UnlockSequence(account mossgarden.Account, newSeq int64) error {
	defer currentState.mutex.Unlock()
	if account != currentState.locked {
		return fmt.Errorf("you requested to unlock %s but we currently have %s locked instead", account, currentState.locked)
	}
	currentState.locked = ""
	if newSeq == 0 {
		return nil
	}
	cs := currentState.data[account]
	if cs.Sequence+1 != newSeq {
		return fmt.Errorf("failed to increment sequence for %s: have %d, got %d", account, cs.Sequence, newSeq)
	}
	cs.Account = account
	cs.Sequence = newSeq
	currentState.data[account] = cs
	currentState.takeSnapshot()
	return nil
}
