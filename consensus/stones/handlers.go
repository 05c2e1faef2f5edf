package stones

import (
	"mossgarden/mossgarden"
)

func HandleEvent(event mossgarden.Event) (h mossgarden.HashSeq, b bool) {
	if mind, _ := mossgarden.WhichMindForKind(event.Kind); mind != "stones" {
		return
	}
	var err error
	switch event.Kind {
	case 645002:
		err = currentState.handle645002(event)
	case 645004:
		err = currentState.handle645004(event)
	case 645006:
		err = currentState.handle645006(event)
	case 645008:
		err = currentState.handle645008(event)
	case 645010:
		err = currentState.handle645010(event)
	default:
		return
	}
	if err != nil {
		mossgarden.LogCLI("event "+event.ID+": "+err.Error(), 3)
		return
	}
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	return hashSeq(currentState.data), true
}

func (s *db) handle645002(event mossgarden.Event) error {
	var unmarshalled Kind645002
	if err := json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return ErrInvalidParameters.Wrap(err)
	}
	if !event.MatchesSequence(unmarshalled.Sequence) {
		return ErrSequenceMismatch
	}
	_, err := s.registerGenesis(event.ID, unmarshalled.GenomeID, event.PubKey, unmarshalled.Owner, unmarshalled.Location, unmarshalled.ActivationCost, event.CreatedAt.Unix())
	return err
}

func (s *db) handle645004(event mossgarden.Event) error {
	var unmarshalled Kind645004
	if err := json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return ErrInvalidParameters.Wrap(err)
	}
	if !event.MatchesSequence(unmarshalled.Sequence) {
		return ErrSequenceMismatch
	}
	_, err := s.mintAstral(event.ID, unmarshalled.GenesisID, event.PubKey, unmarshalled.Location, event.CreatedAt.Unix())
	return err
}

func (s *db) handle645006(event mossgarden.Event) error {
	var unmarshalled Kind645006
	if err := json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return ErrInvalidParameters.Wrap(err)
	}
	if !event.MatchesSequence(unmarshalled.Sequence) {
		return ErrSequenceMismatch
	}
	req := ActivationRequest{
		Activator: event.PubKey,
		Proof:     unmarshalled.Proof,
		Level:     unmarshalled.Level,
	}
	if r := unmarshalled.Review; r != nil {
		req.Review = &Review{
			Reviewer:  event.PubKey,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: event.CreatedAt.Unix(),
		}
	}
	_, err := s.activate(unmarshalled.StoneID, req)
	return err
}

// Harvest time is our clock, not the event's. A player must not be able to backdate their last harvest.
func (s *db) handle645008(event mossgarden.Event) error {
	var unmarshalled Kind645008
	if err := json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return ErrInvalidParameters.Wrap(err)
	}
	if !event.MatchesSequence(unmarshalled.Sequence) {
		return ErrSequenceMismatch
	}
	_, err := s.harvest(unmarshalled.StoneID, event.PubKey, unmarshalled.Env, s.now())
	return err
}

func (s *db) handle645010(event mossgarden.Event) error {
	var unmarshalled Kind645010
	if err := json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return ErrInvalidParameters.Wrap(err)
	}
	if !event.MatchesSequence(unmarshalled.Sequence) {
		return ErrSequenceMismatch
	}
	return s.sendSpore(unmarshalled.SourceID, unmarshalled.TargetID, event.PubKey, s.now())
}
