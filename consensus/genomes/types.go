package genomes

import (
	"mossgarden/consensus/geo"
	"mossgarden/mossgarden"
)

// Genome is a circular territory that stones are registered under.
type Genome struct {
	ID          mossgarden.S256Hash
	Owner       mossgarden.Account
	Center      geo.Location
	Radius      uint32 // meters
	TaxPermille uint16 // share of astral sales owed to the Owner
	CreatedAt   int64
	Sequence    int64
}

type GenomeCreated struct {
	GenomeID        mossgarden.S256Hash `json:"genome_id"`
	Owner           mossgarden.Account  `json:"owner"`
	CenterLatitude  float64             `json:"center_latitude"`
	CenterLongitude float64             `json:"center_longitude"`
	Radius          uint32              `json:"radius"`
	TaxPermille     uint16              `json:"tax_permille"`
}

func (GenomeCreated) EventKind() int64 { return mossgarden.KindGenomeCreated }

//Kind645000 STATUS:DRAFT
//Used for creating a Genome. The Genome ID is the ID of the event.
type Kind645000 struct {
	Center      geo.Location `json:"center"`
	Radius      uint32       `json:"radius"`
	TaxPermille uint16       `json:"tax_permille"`
	Sequence    int64        `json:"sequence"`
}
