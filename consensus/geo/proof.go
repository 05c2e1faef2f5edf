package geo

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"mossgarden/mossgarden"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Proof is a location claim issued and signed by an oracle.
type Proof struct {
	Oracle    string `json:"oracle"`    // hex x-only pubkey of the issuer
	Timestamp int64  `json:"timestamp"` // unix seconds
	Payload   []byte `json:"payload"`   // encoded claimed coordinates
	Signature string `json:"signature"` // schnorr over sha256(timestamp || payload)
}

// SigningBytes is the message an oracle signs.
func (p Proof) SigningBytes() []byte {
	b := []byte(strconv.FormatInt(p.Timestamp, 10))
	return append(b, p.Payload...)
}

// ProofDecoder extracts the claimed coordinates from a Proof.
type ProofDecoder interface {
	Decode(p Proof) (lat, lon float64, err error)
}

// OracleAuthority answers whether an oracle may issue proofs.
type OracleAuthority interface {
	IsAuthorized(oracle string) bool
}

// SignedProofDecoder checks the oracle's signature over the proof, then decodes the JSON payload {"lat":..,"lon":..}.
type SignedProofDecoder struct{}

func (SignedProofDecoder) Decode(p Proof) (lat, lon float64, err error) {
	if len(p.Payload) == 0 {
		return 0, 0, fmt.Errorf("empty payload")
	}
	ok, err := mossgarden.VerifySignature(p.SigningBytes(), p.Signature, p.Oracle)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, fmt.Errorf("signature does not match oracle %s", p.Oracle)
	}
	var loc Location
	if err := json.Unmarshal(p.Payload, &loc); err != nil {
		return 0, 0, fmt.Errorf("payload: %w", err)
	}
	if !loc.Valid() {
		return 0, 0, fmt.Errorf("payload holds invalid coordinates %v", loc)
	}
	return loc.Latitude, loc.Longitude, nil
}

// IssueProof builds a Proof for loc at timestamp and signs it with the oracle's private key.
func IssueProof(loc Location, timestamp int64, oraclePrivateKey string) (Proof, error) {
	oracle, err := mossgarden.PubKey(oraclePrivateKey)
	if err != nil {
		return Proof{}, err
	}
	payload, err := json.Marshal(loc)
	if err != nil {
		return Proof{}, err
	}
	p := Proof{Oracle: oracle, Timestamp: timestamp, Payload: payload}
	sig, err := mossgarden.Sign(p.SigningBytes(), oraclePrivateKey)
	if err != nil {
		return Proof{}, err
	}
	p.Signature = sig
	return p, nil
}
