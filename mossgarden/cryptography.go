package mossgarden

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	boom "github.com/tylertreat/BoomFilters"
)

// Sign hashes message with sha256 and signs the hash with a BIP-340 schnorr signature.
// The signature is returned hex encoded.
func Sign(message []byte, privateKey string) (signature string, e error) {
	hash := sha256.Sum256(message)

	s, err := hex.DecodeString(privateKey)
	if err != nil {
		return signature, fmt.Errorf("Sign called with invalid private key: %w", err)
	}
	sk, _ := btcec.PrivKeyFromBytes(s)

	sig, err := schnorr.Sign(sk, hash[:])
	if err != nil {
		return signature, err
	}

	return hex.EncodeToString(sig.Serialize()), nil
}

// VerifySignature checks a hex encoded schnorr signature over sha256(message) against a hex encoded x-only pubkey.
func VerifySignature(message []byte, signature string, pubkey string) (bool, error) {
	hash := sha256.Sum256(message)
	pk, err := hex.DecodeString(pubkey)
	if err != nil {
		return false, fmt.Errorf("invalid pubkey: %w", err)
	}
	pub, err := schnorr.ParsePubKey(pk)
	if err != nil {
		return false, fmt.Errorf("invalid pubkey: %w", err)
	}
	s, err := hex.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature: %w", err)
	}
	sig, err := schnorr.ParseSignature(s)
	if err != nil {
		return false, fmt.Errorf("invalid signature: %w", err)
	}
	return sig.Verify(hash[:], pub), nil
}

// PubKey returns the hex encoded x-only public key for a hex encoded private key.
func PubKey(privateKey string) (string, error) {
	b, err := hex.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("error decoding key from hex: %w", err)
	}
	_, pubkey := btcec.PrivKeyFromBytes(b)
	return hex.EncodeToString(schnorr.SerializePubKey(pubkey)), nil
}

func Sha256(data interface{}) S256Hash {
	var b []byte
	switch d := data.(type) {
	case string:
		b = []byte(d)
	case []byte:
		b = d
	default:
		b = []byte(fmt.Sprint(d))
	}
	h := sha256.New()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// MakeNewInverseBloomFilter returns a function that reports true the first time it sees a message
// and false afterwards (until the message is evicted).
func MakeNewInverseBloomFilter(capacity uint) func(message interface{}) bool {
	ibf := boom.NewInverseBloomFilter(capacity)
	return func(message interface{}) bool {
		b := []byte(fmt.Sprint(message))
		return !ibf.TestAndAdd(b)
	}
}

//AppendData adds the provided data to a buffer that lives as long as the HashSeq.
//Call HashSeq.S256 to hash the buffer and write the hash to HashSeq.Hash
func (h *HashSeq) AppendData(data interface{}) error {
	var errors []error
	switch d := data.(type) {
	case string:
		_, err := h.Data.WriteString(d)
		errors = append(errors, err)
	case int64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(d))
		_, err := h.Data.Write(b)
		errors = append(errors, err)
	case uint64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, d)
		_, err := h.Data.Write(b)
		errors = append(errors, err)
	case uint8:
		errors = append(errors, h.Data.WriteByte(d))
	case float64:
		_, err := h.Data.WriteString(fmt.Sprintf("%.7f", d))
		errors = append(errors, err)
	case []byte:
		_, err := h.Data.Write(d)
		errors = append(errors, err)
	case []string:
		for _, s := range d {
			_, err := h.Data.WriteString(s)
			errors = append(errors, err)
		}
	case bool:
		if d {
			errors = append(errors, h.Data.WriteByte(1))
		} else {
			errors = append(errors, h.Data.WriteByte(0))
		}
	default:
		return fmt.Errorf("cannot append %T to a HashSeq", data)
	}
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

// S256 calculates the sha256 hash of the HashSeq and stores it as the HashSeq.Hash
//It resets the HashSeq.Data buffer.
func (h *HashSeq) S256() {
	h.Hash = fmt.Sprintf("%x", sha256.Sum256(h.Data.Bytes()))
	h.Data.Reset()
}
