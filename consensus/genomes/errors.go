package genomes

import (
	"mossgarden/mossgarden"
)

var (
	ErrInvalidParameters   = mossgarden.NewFault(mossgarden.ValidationError, "invalid parameters")
	ErrTaxesTooHigh        = mossgarden.NewFault(mossgarden.ValidationError, "territory tax too high")
	ErrLocationOutOfBounds = mossgarden.NewFault(mossgarden.ValidationError, "location outside genome territory")
	ErrSequenceMismatch    = mossgarden.NewFault(mossgarden.ValidationError, "content sequence does not match the event")
	ErrGenomeNotFound      = mossgarden.NewFault(mossgarden.StateError, "genome not found")
	ErrAlreadyExists       = mossgarden.NewFault(mossgarden.StateError, "already exists")
)
