package stones

import (
	"mossgarden/consensus/genomes"
	"mossgarden/mossgarden"
)

var (
	ErrInvalidActivationLevel    = mossgarden.NewFault(mossgarden.ValidationError, "invalid activation level")
	ErrCannotDowngradeActivation = mossgarden.NewFault(mossgarden.ValidationError, "cannot downgrade activation")
	ErrNotGenesis                = mossgarden.NewFault(mossgarden.ValidationError, "not a genesis stone")
	ErrUnauthorized              = mossgarden.NewFault(mossgarden.ValidationError, "unauthorized")
	ErrMossTooYoung              = mossgarden.NewFault(mossgarden.ValidationError, "moss too young to send spores")
	ErrMaxSporesReached          = mossgarden.NewFault(mossgarden.ValidationError, "maximum spores reached")
	ErrDuplicateSpore            = mossgarden.NewFault(mossgarden.ValidationError, "stone already holds a spore from this genome")

	ErrInvalidState   = mossgarden.NewFault(mossgarden.StateError, "invalid stone state")
	ErrHarvestTooSoon = mossgarden.NewFault(mossgarden.StateError, "harvest too soon")
	ErrStoneNotFound  = mossgarden.NewFault(mossgarden.StateError, "stone not found")

	ErrPaymentFailed = mossgarden.NewFault(mossgarden.DependencyError, "payment failed")
	ErrMintFailed    = mossgarden.NewFault(mossgarden.DependencyError, "mint failed")

	ErrInvalidParameters   = genomes.ErrInvalidParameters
	ErrLocationOutOfBounds = genomes.ErrLocationOutOfBounds
	ErrGenomeNotFound      = genomes.ErrGenomeNotFound
	ErrAlreadyExists       = genomes.ErrAlreadyExists
	ErrSequenceMismatch    = genomes.ErrSequenceMismatch
)
