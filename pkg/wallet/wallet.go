// Package wallet defines the signing capabilities a transfer is executed with.
// Signers are always passed in explicitly; nothing here reaches into process globals.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	solcommon "github.com/blocto/solana-go-sdk/common"
)

// EVMSigner signs transactions for one EVM account on any EVM chain
type EVMSigner interface {
	Address() common.Address
	Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

// SolanaSigner signs Solana transaction messages for one account
type SolanaSigner interface {
	PublicKey() solcommon.PublicKey
	Sign(message []byte) ([]byte, error)
}

// Set carries one optional signer per execution category
type Set struct {
	EVM    EVMSigner
	Solana SolanaSigner
}

// KeyedEVMSigner signs with an in-memory private key
type KeyedEVMSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ EVMSigner = (*KeyedEVMSigner)(nil)

// NewKeyedEVMSigner parses a hex encoded secp256k1 private key, with or without 0x prefix
func NewKeyedEVMSigner(hexKey string) (*KeyedEVMSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}
	return NewEVMSignerFromKey(key), nil
}

// NewEVMSignerFromKey wraps an existing key
func NewEVMSignerFromKey(key *ecdsa.PrivateKey) *KeyedEVMSigner {
	return &KeyedEVMSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *KeyedEVMSigner) Address() common.Address {
	return s.address
}

func (s *KeyedEVMSigner) Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %v", err)
	}
	auth.Context = ctx
	return auth, nil
}

// KeypairSolanaSigner signs with an in-memory ed25519 keypair
type KeypairSolanaSigner struct {
	account types.Account
}

var _ SolanaSigner = (*KeypairSolanaSigner)(nil)

// NewKeypairSolanaSigner accepts a base58 encoded 64 byte secret key or the JSON byte array
// written by solana-keygen
func NewKeypairSolanaSigner(secret string) (*KeypairSolanaSigner, error) {
	secret = strings.TrimSpace(secret)

	var raw []byte
	if strings.HasPrefix(secret, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(secret), &ints); err != nil {
			return nil, fmt.Errorf("failed to parse keypair bytes: %v", err)
		}
		for _, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("invalid keypair byte %d", v)
			}
			raw = append(raw, byte(v))
		}
	} else {
		decoded, err := base58.Decode(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base58 keypair: %v", err)
		}
		raw = decoded
	}

	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid keypair length %d, expected 64", len(raw))
	}

	account, err := types.AccountFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair: %v", err)
	}
	return NewSolanaSignerFromAccount(account), nil
}

// NewSolanaSignerFromAccount wraps an existing account
func NewSolanaSignerFromAccount(account types.Account) *KeypairSolanaSigner {
	return &KeypairSolanaSigner{account: account}
}

func (s *KeypairSolanaSigner) PublicKey() solcommon.PublicKey {
	return s.account.PublicKey
}

func (s *KeypairSolanaSigner) Sign(message []byte) ([]byte, error) {
	return s.account.Sign(message), nil
}
