package geo

import (
	"time"

	"mossgarden/mossgarden"
)

var (
	ErrOutsideRange       = mossgarden.NewFault(mossgarden.ProximityError, "outside activation range")
	ErrProofExpired       = mossgarden.NewFault(mossgarden.ProximityError, "geo proof expired")
	ErrUnauthorizedIssuer = mossgarden.NewFault(mossgarden.ProximityError, "unauthorized oracle")
	ErrInvalidProof       = mossgarden.NewFault(mossgarden.ProximityError, "invalid geo proof")
)

const (
	DefaultFreshness = 3600 * time.Second
	DefaultClockSkew = 300 * time.Second
)

// Verifier checks a Proof against a location. Checks run in a fixed order:
// decode, freshness, issuer authorization, range. The first failure is returned.
type Verifier struct {
	Decoder   ProofDecoder
	Authority OracleAuthority
	Now       func() time.Time
	// Freshness is the age at which a proof expires.
	Freshness time.Duration
	// ClockSkew is how far in the future a proof timestamp may be.
	ClockSkew time.Duration
}

func NewVerifier(decoder ProofDecoder, authority OracleAuthority) *Verifier {
	return &Verifier{
		Decoder:   decoder,
		Authority: authority,
		Now:       time.Now,
		Freshness: DefaultFreshness,
		ClockSkew: DefaultClockSkew,
	}
}

// VerifierFromConfig reads proofFreshness and proofClockSkew (seconds) from the global config.
func VerifierFromConfig(decoder ProofDecoder, authority OracleAuthority) *Verifier {
	v := NewVerifier(decoder, authority)
	conf := mossgarden.MakeOrGetConfig()
	if s := conf.GetInt64("proofFreshness"); s > 0 {
		v.Freshness = time.Duration(s) * time.Second
	}
	if s := conf.GetInt64("proofClockSkew"); s >= 0 && conf.IsSet("proofClockSkew") {
		v.ClockSkew = time.Duration(s) * time.Second
	}
	return v
}

func (v *Verifier) Verify(location Location, proof Proof, maxDistanceMeters uint32) error {
	lat, lon, err := v.Decoder.Decode(proof)
	if err != nil {
		return ErrInvalidProof.Wrap(err)
	}
	now := v.Now().Unix()
	if proof.Timestamp-now > int64(v.ClockSkew/time.Second) {
		return ErrInvalidProof
	}
	if now-proof.Timestamp >= int64(v.Freshness/time.Second) {
		return ErrProofExpired
	}
	if !v.Authority.IsAuthorized(proof.Oracle) {
		return ErrUnauthorizedIssuer
	}
	if Distance(location.Latitude, location.Longitude, lat, lon) > float64(maxDistanceMeters) {
		return ErrOutsideRange
	}
	return nil
}
