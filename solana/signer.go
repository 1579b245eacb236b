// Package solana implements the on-chain half of the DataNexus
// pay-per-request flow: a signing identity, an RPC connection with
// endpoint fallback, and a payment executor that settles USDC
// TransferChecked transfers.
package solana

import (
	"encoding/json"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
)

// Signer holds the client's signing identity for the lifetime of the
// process. The secret is never persisted.
type Signer struct {
	key solana.PrivateKey
}

// LoadSigner deserializes a secret key given either as a base58 string or
// as a JSON byte array (the two formats solana-keygen and wallet exports
// produce).
func LoadSigner(secret string) (*Signer, error) {
	if key, err := solana.PrivateKeyFromBase58(secret); err == nil {
		return &Signer{key: key}, nil
	}

	var raw []uint16
	if err := json.Unmarshal([]byte(secret), &raw); err != nil {
		return nil, fmt.Errorf("invalid private key: expected base58 string or JSON byte array")
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid private key: byte array must be 64 bytes, got %d", len(raw))
	}

	key := make(solana.PrivateKey, len(raw))
	for i, b := range raw {
		if b > 255 {
			return nil, fmt.Errorf("invalid private key: byte array entry %d out of range", i)
		}
		key[i] = byte(b)
	}

	return &Signer{key: key}, nil
}

// PublicKey returns the signer's wallet address.
func (s *Signer) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// Sign adds the signer's signature to the transaction.
func (s *Signer) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
