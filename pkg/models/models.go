package models

import (
	"math/big"

	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

// StepName identifies one step of the burn-attest-mint protocol
type StepName string

const (
	StepApprove          StepName = "approve"
	StepBurn             StepName = "burn"
	StepFetchAttestation StepName = "fetchAttestation"
	StepMint             StepName = "mint"
)

// Steps lists the protocol steps in execution order
var Steps = []StepName{StepApprove, StepBurn, StepFetchAttestation, StepMint}

// StepState is the state reported for a step
type StepState string

const (
	StatePending StepState = "pending"
	StateSuccess StepState = "success"
	StateError   StepState = "error"
	StateNoop    StepState = "noop"
)

// Sentinel mint hashes reported when the mint outcome is known to be harmless but has no hash of its own
const (
	MintAlreadyCompleted            = "mint-already-completed"
	MintTimeoutCheckWallet          = "mint-timeout-check-wallet"
	MintSignatureExpiredCheckWallet = "mint-signature-expired-check-wallet"
)

// ProtocolStep is a progress event for one step. Terminal is the failure status an
// error event ends the session with, FAILED when empty.
type ProtocolStep struct {
	Name     StepName      `json:"name"`
	State    StepState     `json:"state"`
	TxHash   string        `json:"txHash,omitempty"`
	Data     interface{}   `json:"data,omitempty"`
	Err      error         `json:"-"`
	Terminal SessionStatus `json:"terminal,omitempty"`
}

// TransferIntent describes a new transfer
type TransferIntent struct {
	SourceChain chains.ChainID
	DestChain   chains.ChainID
	Amount      string
	Recipient   string
	Wallets     wallet.Set
}

// RecoveryIntent describes a transfer whose burn is already confirmed on the source chain
type RecoveryIntent struct {
	SourceTxID  string
	SourceChain chains.ChainID
	DestChain   chains.ChainID
	// Amount is informational, the attested amount takes precedence
	Amount string
	// IntendedRecipient is only logged, the attested mint recipient is authoritative
	IntendedRecipient string
	Wallets           wallet.Set
}

// ResultState is the overall outcome of a transfer call
type ResultState string

const (
	ResultSuccess ResultState = "success"
	ResultError   ResultState = "error"
)

// BridgeResult summarizes a transfer or recovery
type BridgeResult struct {
	State         ResultState
	Steps         []ProtocolStep
	Source        chains.ChainDescriptor
	Dest          chains.ChainDescriptor
	SourceAddress string
	// DestSigner pays the mint fees, Recipient receives the funds; they may differ
	DestSigner string
	Recipient  string
	Amount     *big.Int
	Session    Session
}

// Step returns the recorded state of a step
func (r *BridgeResult) Step(name StepName) (ProtocolStep, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return ProtocolStep{}, false
}
