// Package signer provides the ECDSA owner key that smart accounts use to
// authorize user operations. Signers are passed explicitly to whatever
// needs them; nothing here keeps process-wide state.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ErrNoKey is returned when neither a private key nor a keystore is configured.
var ErrNoKey = errors.New("no signer key configured")

// Signer signs 32-byte digests with a secp256k1 key.
type Signer interface {
	Address() common.Address
	// SignHash returns r ‖ s ‖ v with v in {27, 28}.
	SignHash(hash common.Hash) ([]byte, error)
}

// KeySigner signs with an in-memory private key.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner wraps an ECDSA private key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// FromHex parses a hex private key, with or without 0x prefix.
func FromHex(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewKeySigner(key), nil
}

// FromKeystore decrypts a Web3 Secret Storage file.
func FromKeystore(path, password string) (*KeySigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	k, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return NewKeySigner(k.PrivateKey), nil
}

// Load picks the private key when set, otherwise the keystore.
func Load(privateKey, keystorePath, password string) (*KeySigner, error) {
	switch {
	case privateKey != "":
		return FromHex(privateKey)
	case keystorePath != "":
		return FromKeystore(keystorePath, password)
	default:
		return nil, ErrNoKey
	}
}

func (s *KeySigner) Address() common.Address { return s.addr }

func (s *KeySigner) SignHash(hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(hash[:], s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// SignMessage signs data with the EIP-191 personal message prefix.
func SignMessage(s Signer, data []byte) ([]byte, error) {
	return s.SignHash(common.BytesToHash(accounts.TextHash(data)))
}

// SignTypedData signs an EIP-712 payload.
func SignTypedData(s Signer, td apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	return s.SignHash(common.BytesToHash(digest))
}

// Recover returns the address that produced a SignHash signature.
func Recover(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(sig))
	}
	cp := common.CopyBytes(sig)
	if cp[crypto.RecoveryIDOffset] >= 27 {
		cp[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash[:], cp)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
