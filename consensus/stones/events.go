package stones

import (
	"mossgarden/mossgarden"
)

type StoneCreated struct {
	StoneID        mossgarden.S256Hash `json:"stone_id"`
	StoneType      string              `json:"stone_type"`
	GenomeID       mossgarden.S256Hash `json:"genome_id"`
	GenesisID      mossgarden.S256Hash `json:"genesis_id,omitempty"`
	Creator        mossgarden.Account  `json:"creator"`
	Owner          mossgarden.Account  `json:"owner"`
	Latitude       float64             `json:"latitude"`
	Longitude      float64             `json:"longitude"`
	ActivationCost uint64              `json:"activation_cost"`
	Timestamp      int64               `json:"timestamp"`
}

type AstralMinted struct {
	GenesisID     mossgarden.S256Hash `json:"genesis_id"`
	AstralID      mossgarden.S256Hash `json:"astral_id"`
	Buyer         mossgarden.Account  `json:"buyer"`
	PaymentAmount uint64              `json:"payment_amount"`
	TaxAmount     uint64              `json:"tax_amount"`
	Timestamp     int64               `json:"timestamp"`
}

type StoneActivated struct {
	StoneID   mossgarden.S256Hash `json:"stone_id"`
	Activator mossgarden.Account  `json:"activator"`
	Timestamp int64               `json:"timestamp"`
	Level     uint8               `json:"level"`
}

type MossHarvested struct {
	StoneID      mossgarden.S256Hash `json:"stone_id"`
	Owner        mossgarden.Account  `json:"owner"`
	MossLevel    uint8               `json:"moss_level"`
	TokensMinted uint64              `json:"tokens_minted"`
	Timestamp    int64               `json:"timestamp"`
}

type SporeSent struct {
	SourceID  mossgarden.S256Hash `json:"source_id"`
	TargetID  mossgarden.S256Hash `json:"target_id"`
	Sender    mossgarden.Account  `json:"sender"`
	Timestamp int64               `json:"timestamp"`
}

type StoneLocked struct {
	StoneID   mossgarden.S256Hash `json:"stone_id"`
	Previous  string              `json:"previous"`
	Timestamp int64               `json:"timestamp"`
}

type StoneUnlocked struct {
	StoneID   mossgarden.S256Hash `json:"stone_id"`
	Restored  string              `json:"restored"`
	Timestamp int64               `json:"timestamp"`
}

func (StoneCreated) EventKind() int64   { return mossgarden.KindStoneCreated }
func (AstralMinted) EventKind() int64   { return mossgarden.KindAstralMinted }
func (StoneActivated) EventKind() int64 { return mossgarden.KindStoneActivated }
func (MossHarvested) EventKind() int64  { return mossgarden.KindMossHarvested }
func (SporeSent) EventKind() int64      { return mossgarden.KindSporeSent }
func (StoneLocked) EventKind() int64    { return mossgarden.KindStoneLocked }
func (StoneUnlocked) EventKind() int64  { return mossgarden.KindStoneUnlocked }
