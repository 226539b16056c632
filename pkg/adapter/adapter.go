// Package adapter executes the chain-specific half of a transfer: building the approve,
// burn and mint transactions and submitting them for one execution category.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

var (
	// ErrWalletNotConnected is returned when no signer was supplied for a chain category
	ErrWalletNotConnected = errors.New("wallet not connected")
	// ErrSignatureExpired is returned when a transaction's validity window elapsed before it was observed on chain
	ErrSignatureExpired = errors.New("transaction signature expired")
	// ErrConfirmationTimeout is returned together with the hash when confirmation was not observed in time
	ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")
	// ErrTransactionReverted is wrapped by ExecutionError when the chain reports a failed transaction
	ErrTransactionReverted = errors.New("transaction reverted")
	// ErrInvalidRecipient is returned when an address is not valid for the destination category
	ErrInvalidRecipient = errors.New("invalid recipient address")
)

// TxKind tells which protocol step a transaction belongs to
type TxKind string

const (
	TxApprove TxKind = "approve"
	TxBurn    TxKind = "burn"
	TxMint    TxKind = "mint"
)

// EVMCall is a contract call ready to be signed
type EVMCall struct {
	To   common.Address
	Data []byte
}

// SolanaTx holds the instructions of a Solana transaction and the extra
// keypairs that must co-sign it
type SolanaTx struct {
	Instructions []types.Instruction
	Signers      []types.Account
}

// Transaction is a built, unsigned transaction. Exactly one of EVM and Solana is set.
type Transaction struct {
	Kind   TxKind
	Chain  chains.ChainDescriptor
	EVM    *EVMCall
	Solana *SolanaTx
}

// BurnTarget carries what the burn needs to know about the destination
type BurnTarget struct {
	Domain        uint32
	MintRecipient cctp.Bytes32
}

// MintInput carries the attested message to redeem on the destination chain
type MintInput struct {
	Message      []byte
	Attestation  []byte
	SourceDomain uint32
	// Recipient is the mint recipient from the attested burn message
	Recipient cctp.Bytes32
	// RecipientOwner, when known, lets the Solana adapter create the recipient token account
	RecipientOwner string
}

// ExecutionError reports a definitive failure of a submitted or simulated transaction
type ExecutionError struct {
	Chain  chains.ChainID
	TxHash string
	Logs   []string
	Err    error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s execution failed: %v", e.Chain, e.Err)
	if e.TxHash != "" {
		msg += " (tx " + e.TxHash + ")"
	}
	if len(e.Logs) > 0 {
		msg += ": " + strings.Join(e.Logs, "; ")
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Adapter builds and executes CCTP transactions for one chain
type Adapter interface {
	// Address returns the signer's address in the chain's native format
	Address() (string, error)
	// EncodeRecipient validates addr and returns its CCTP mintRecipient encoding
	EncodeRecipient(addr string) (cctp.Bytes32, error)
	// BuildApprove returns nil when no allowance step is needed
	BuildApprove(ctx context.Context, amount *big.Int) (*Transaction, error)
	BuildBurn(ctx context.Context, target BurnTarget, amount *big.Int) (*Transaction, error)
	BuildMint(ctx context.Context, input MintInput) (*Transaction, error)
	// Execute signs and submits tx and waits for confirmation. A non-empty hash is returned
	// whenever the transaction was submitted and not definitively failed, even with an error.
	Execute(ctx context.Context, tx *Transaction) (string, error)
	Close()
}

// Options tunes adapter behavior
type Options struct {
	// ConfirmTimeout bounds the wait for approve and burn confirmations
	ConfirmTimeout time.Duration
	// MintTimeoutEVM and MintTimeoutSolana bound the wait for mint confirmations
	MintTimeoutEVM    time.Duration
	MintTimeoutSolana time.Duration
	// GasMultiplier is applied to the suggested EVM gas price
	GasMultiplier float64
	// PollInterval is the Solana signature status polling interval
	PollInterval time.Duration
}

// DefaultOptions returns the default adapter options
func DefaultOptions() Options {
	return Options{
		ConfirmTimeout:    2 * time.Minute,
		MintTimeoutEVM:    60 * time.Second,
		MintTimeoutSolana: 90 * time.Second,
		GasMultiplier:     1.1,
		PollInterval:      2 * time.Second,
	}
}

func (o Options) timeoutFor(kind TxKind, category chains.Category) time.Duration {
	if kind != TxMint {
		return o.ConfirmTimeout
	}
	if category == chains.CategorySolana {
		return o.MintTimeoutSolana
	}
	return o.MintTimeoutEVM
}

// Factory creates adapters for a chain descriptor
type Factory interface {
	New(ctx context.Context, desc chains.ChainDescriptor, wallets wallet.Set) (Adapter, error)
}

// RPCFactory dials real chain RPC endpoints
type RPCFactory struct {
	Options Options
	Logger  logger.Logger
}

var _ Factory = (*RPCFactory)(nil)

// NewRPCFactory creates a factory dialing the descriptor's RPC endpoint
func NewRPCFactory(opts Options, log logger.Logger) *RPCFactory {
	return &RPCFactory{Options: opts, Logger: log}
}

// New selects the adapter variant from the descriptor's category
func (f *RPCFactory) New(ctx context.Context, desc chains.ChainDescriptor, wallets wallet.Set) (Adapter, error) {
	if desc.RPCEndpoint == "" {
		return nil, fmt.Errorf("no RPC endpoint configured for chain %s", desc.ID)
	}
	switch desc.Category {
	case chains.CategoryEVM:
		return DialEVM(ctx, desc, wallets.EVM, f.Options, f.Logger)
	case chains.CategorySolana:
		return NewSolanaAdapter(desc, NewSolanaRPC(desc.RPCEndpoint), wallets.Solana, f.Options, f.Logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", chains.ErrUnknownCategory, desc.Category)
	}
}
