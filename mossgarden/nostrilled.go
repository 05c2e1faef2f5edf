package mossgarden

import (
	"strconv"
	"time"

	"github.com/spf13/cast"
	"github.com/stackerstan/go-nostr"
)

type Event struct {
	ID          string
	PubKey      string
	CreatedAt   time.Time
	Kind        int64
	Tags        nostr.Tags
	Content     string
	Sig         string
	WitnessedAt int64 //unix time when we first witnessed this event
}

var minds = make(map[string]string)

//RegisterMind registers a Mind's name and event kinds so that we can route events to the right consumer.
func RegisterMind(kinds []int64, word, mind string) bool {
	kindsMutex.Lock()
	_, taken := minds[word]
	if !taken {
		minds[word] = mind
	}
	kindsMutex.Unlock()
	if taken {
		return false
	}
	return registerKinds(kinds, mind) == nil
}

//GetSingleTag returns the value of the first tag that matches t string.
func (e *Event) GetSingleTag(t string) (value string, ok bool) {
	for _, tag := range e.Tags {
		if len(tag) > 1 && tag[0] == t && len(tag[1]) > 0 {
			return tag[1], true
		}
	}
	return
}

// Sequence returns the sequence tag of the event, or 0 if it has none.
func (e *Event) Sequence() int64 {
	if seq, ok := e.GetSingleTag("sequence"); ok {
		if s, err := cast.ToInt64E(seq); err == nil {
			return s
		}
	}
	return 0
}

// MatchesSequence reports whether seq, the sequence carried in the event content, is the one in its sequence tag.
func (e *Event) MatchesSequence(seq int64) bool {
	s := e.Sequence()
	return s > 0 && s == seq
}

func (e *Event) CheckSignature() (bool, error) {
	n := e.convertToNostrEvent()
	return n.CheckSignature()
}

func (e *Event) convertToNostrEvent() nostr.Event {
	return nostr.Event{
		ID:        e.ID,
		PubKey:    e.PubKey,
		CreatedAt: e.CreatedAt,
		Kind:      int(e.Kind),
		Tags:      e.Tags,
		Content:   e.Content,
		Sig:       e.Sig,
	}
}

func (e *Event) Nostr() nostr.Event {
	return e.convertToNostrEvent()
}

//ConvertToInternalEvent parses a nostr event and converts it to a locally Typed event
func ConvertToInternalEvent(evt *nostr.Event) Event {
	return Event{
		ID:          evt.ID,
		PubKey:      evt.PubKey,
		CreatedAt:   evt.CreatedAt,
		Kind:        int64(evt.Kind),
		Tags:        evt.Tags,
		Content:     evt.Content,
		Sig:         evt.Sig,
		WitnessedAt: time.Now().Unix(),
	}
}

// SignedEvent builds a nostr event of the given kind with our wallet as author and signs it.
func SignedEvent(kind int64, content string, tags nostr.Tags) (nostr.Event, error) {
	w := MyWallet()
	e := nostr.Event{
		PubKey:    w.Account,
		CreatedAt: time.Now(),
		Kind:      int(kind),
		Tags:      tags,
		Content:   content,
	}
	e.ID = e.GetID()
	if err := e.Sign(w.PrivateKey); err != nil {
		return e, err
	}
	return e, nil
}

// SequenceTag is the tag every state changing event must carry.
func SequenceTag(seq int64) []string {
	return []string{"sequence", strconv.FormatInt(seq, 10)}
}
