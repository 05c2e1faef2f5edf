package stones

import (
	"mossgarden/consensus/geo"
	"mossgarden/consensus/rewards"
	"mossgarden/mossgarden"
)

type StoneType = rewards.StoneType

const (
	Genesis = rewards.Genesis
	Astral  = rewards.Astral
)

type EnvData = rewards.EnvData

type State uint8

const (
	Created State = iota
	ActivatedLevel1
	ActivatedLevel2
	ActivatedLevel3
	Locked
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case ActivatedLevel1:
		return "activated-1"
	case ActivatedLevel2:
		return "activated-2"
	case ActivatedLevel3:
		return "activated-3"
	case Locked:
		return "locked"
	}
	return "unknown"
}

// Level is the activation level of the state, 0 when the stone is not activated.
func (s State) Level() uint8 {
	switch s {
	case ActivatedLevel1:
		return 1
	case ActivatedLevel2:
		return 2
	case ActivatedLevel3:
		return 3
	}
	return 0
}

func (s State) Activated() bool {
	return s.Level() > 0
}

func stateForLevel(level uint8) State {
	switch level {
	case 1:
		return ActivatedLevel1
	case 2:
		return ActivatedLevel2
	case 3:
		return ActivatedLevel3
	}
	return Created
}

type Review struct {
	Reviewer  mossgarden.Account `json:"reviewer"`
	Rating    uint8              `json:"rating"`
	Comment   string             `json:"comment"`
	CreatedAt int64              `json:"created_at"`
}

// Spore is a growth boost received from another stone.
type Spore struct {
	SourceID       mossgarden.S256Hash
	SourceGenomeID mossgarden.S256Hash
	Sender         mossgarden.Account
	SentAt         int64
}

type Stone struct {
	ID              mossgarden.S256Hash
	Type            StoneType
	GenomeID        mossgarden.S256Hash
	GenesisID       mossgarden.S256Hash // Astral only
	Creator         mossgarden.Account
	Owner           mossgarden.Account
	Location        geo.Location
	State           State
	LockedFrom      State
	MossLevel       uint8
	ActivationCost  uint64
	Reviews         []Review
	LastHarvestTime int64
	ActivatedAt     int64
	SporesSent      uint8
	Spores          []Spore
	CreatedAt       int64
	Sequence        int64
}

func (s Stone) clone() Stone {
	c := s
	c.Reviews = append([]Review(nil), s.Reviews...)
	c.Spores = append([]Spore(nil), s.Spores...)
	return c
}

//Kind645002 STATUS:DRAFT
//Used by a Genome owner to register a Genesis Stone in their territory. The Stone ID is the ID of the event.
type Kind645002 struct {
	GenomeID       mossgarden.S256Hash `json:"genome_id"`
	Owner          mossgarden.Account  `json:"owner"` // defaults to the event author
	Location       geo.Location        `json:"location"`
	ActivationCost uint64              `json:"activation_cost"`
	Sequence       int64               `json:"sequence"`
}

//Kind645004 STATUS:DRAFT
//Used for buying an Astral Stone from a Genesis Stone. The Astral Stone ID is the ID of the event.
type Kind645004 struct {
	GenesisID mossgarden.S256Hash `json:"genesis_id"`
	Location  geo.Location        `json:"location"`
	Sequence  int64               `json:"sequence"`
}

//Kind645006 STATUS:DRAFT
//Used for activating a Stone at a level using an oracle signed location proof
type Kind645006 struct {
	StoneID  mossgarden.S256Hash `json:"stone_id"`
	Level    uint8               `json:"level"`
	Proof    geo.Proof           `json:"proof"`
	Review   *ReviewContent      `json:"review,omitempty"`
	Sequence int64               `json:"sequence"`
}

type ReviewContent struct {
	Rating  uint8  `json:"rating"`
	Comment string `json:"comment"`
}

//Kind645008 STATUS:DRAFT
//Used by a Stone owner to grow and harvest moss
type Kind645008 struct {
	StoneID  mossgarden.S256Hash `json:"stone_id"`
	Env      EnvData             `json:"env"`
	Sequence int64               `json:"sequence"`
}

//Kind645010 STATUS:DRAFT
//Used for sending a spore from a Stone we own to another Stone
type Kind645010 struct {
	SourceID mossgarden.S256Hash `json:"source_id"`
	TargetID mossgarden.S256Hash `json:"target_id"`
	Sequence int64               `json:"sequence"`
}
