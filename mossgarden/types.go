package mossgarden

import (
	"bytes"
)

type Account = string

type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

type S256Hash = string

type MindLog struct {
	MindName string
	Comment  string
	Message  interface{}
}

type HashSeq struct {
	Hash      S256Hash
	Sequence  int64
	Mind      string
	Data      bytes.Buffer
	CreatedAt int64
	EventID   S256Hash //optional
}

// DomainEvent is anything a Mind emits after committing a mutation. EventKind is the Nostr Kind
// the event is published under.
type DomainEvent interface {
	EventKind() int64
}

// EventSink consumes DomainEvents. Publishing is fire-and-forget, delivering the same event more than once is acceptable.
type EventSink interface {
	Publish(event DomainEvent)
}

// Nostr Kinds for DomainEvents we publish
const (
	KindGenomeCreated  int64 = 645100
	KindStoneCreated   int64 = 645102
	KindAstralMinted   int64 = 645104
	KindStoneActivated int64 = 645106
	KindMossHarvested  int64 = 645108
	KindSporeSent      int64 = 645110
	KindStoneLocked    int64 = 645112
	KindStoneUnlocked  int64 = 645114
)
