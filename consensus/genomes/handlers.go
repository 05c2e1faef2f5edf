package genomes

import (
	"mossgarden/mossgarden"
)

func HandleEvent(event mossgarden.Event) (h mossgarden.HashSeq, b bool) {
	if mind, _ := mossgarden.WhichMindForKind(event.Kind); mind != "genomes" {
		return
	}
	switch event.Kind {
	case 645000:
		return currentState.handle645000(event)
	}
	return
}

func (s *db) handle645000(event mossgarden.Event) (h mossgarden.HashSeq, b bool) {
	var unmarshalled Kind645000
	if err := json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		mossgarden.LogCLI(err.Error(), 3)
		return
	}
	if !event.MatchesSequence(unmarshalled.Sequence) {
		mossgarden.LogCLI("event "+event.ID+": "+ErrSequenceMismatch.Error(), 3)
		return
	}
	if _, err := s.create(event.ID, event.PubKey, unmarshalled.Center, unmarshalled.Radius, unmarshalled.TaxPermille, event.CreatedAt.Unix()); err != nil {
		mossgarden.LogCLI("event "+event.ID+": "+err.Error(), 3)
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return hashSeq(s.data), true
}
