package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

// SolanaAdapter executes CCTP instructions on a Solana cluster
type SolanaAdapter struct {
	desc     chains.ChainDescriptor
	rpc      SolanaRPC
	signer   wallet.SolanaSigner
	opts     Options
	logger   logger.Logger
	programs cctpPrograms
	// newEventAccount creates the keypair holding the burn's message event data
	newEventAccount func() types.Account
}

var _ Adapter = (*SolanaAdapter)(nil)

// NewSolanaAdapter creates an adapter over an RPC client
func NewSolanaAdapter(
	desc chains.ChainDescriptor,
	rpc SolanaRPC,
	signer wallet.SolanaSigner,
	opts Options,
	log logger.Logger,
) *SolanaAdapter {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &SolanaAdapter{
		desc:   desc,
		rpc:    rpc,
		signer: signer,
		opts:   opts,
		logger: log,
		programs: cctpPrograms{
			tokenMessengerMinter: common.PublicKeyFromString(desc.TokenMessenger),
			messageTransmitter:   common.PublicKeyFromString(desc.MessageTransmitter),
			usdcMint:             common.PublicKeyFromString(desc.USDC),
		},
		newEventAccount: types.NewAccount,
	}
}

func (a *SolanaAdapter) Address() (string, error) {
	if a.signer == nil {
		return "", ErrWalletNotConnected
	}
	return a.signer.PublicKey().ToBase58(), nil
}

// parsePublicKey validates a base58 encoded 32 byte public key
func parsePublicKey(addr string) (common.PublicKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(addr))
	if err != nil || len(raw) != common.PublicKeyLength {
		return common.PublicKey{}, fmt.Errorf("%w: %q is not a Solana address", ErrInvalidRecipient, addr)
	}
	return common.PublicKeyFromBytes(raw), nil
}

// EncodeRecipient returns the recipient's USDC token account, which is what the
// token messenger minter credits
func (a *SolanaAdapter) EncodeRecipient(addr string) (cctp.Bytes32, error) {
	owner, err := parsePublicKey(addr)
	if err != nil {
		return cctp.Bytes32{}, err
	}
	ata, _, err := common.FindAssociatedTokenAddress(owner, a.programs.usdcMint)
	if err != nil {
		return cctp.Bytes32{}, fmt.Errorf("failed to derive token account: %v", err)
	}
	return cctp.Bytes32(ata), nil
}

// BuildApprove always returns nil, the burn instruction is authorized by the owner signature
func (a *SolanaAdapter) BuildApprove(_ context.Context, _ *big.Int) (*Transaction, error) {
	return nil, nil
}

func (a *SolanaAdapter) BuildBurn(_ context.Context, target BurnTarget, amount *big.Int) (*Transaction, error) {
	if a.signer == nil {
		return nil, ErrWalletNotConnected
	}
	if !amount.IsUint64() {
		return nil, fmt.Errorf("amount %s exceeds the Solana token amount range", amount.String())
	}
	if target.MintRecipient.IsZero() {
		return nil, fmt.Errorf("%w: empty mint recipient", ErrInvalidRecipient)
	}

	eventAccount := a.newEventAccount()
	ix, err := a.programs.depositForBurn(
		a.signer.PublicKey(),
		eventAccount.PublicKey,
		target.Domain,
		target.MintRecipient,
		amount.Uint64(),
	)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		Kind:  TxBurn,
		Chain: a.desc,
		Solana: &SolanaTx{
			Instructions: []types.Instruction{ix},
			Signers:      []types.Account{eventAccount},
		},
	}, nil
}

func (a *SolanaAdapter) BuildMint(_ context.Context, input MintInput) (*Transaction, error) {
	if a.signer == nil {
		return nil, ErrWalletNotConnected
	}
	msg, err := cctp.ParseMessage(input.Message)
	if err != nil {
		return nil, err
	}
	burn, err := msg.BurnMessage()
	if err != nil {
		return nil, err
	}

	payer := a.signer.PublicKey()
	var instructions []types.Instruction

	if input.RecipientOwner != "" {
		owner, err := parsePublicKey(input.RecipientOwner)
		if err != nil {
			return nil, err
		}
		create, err := createAssociatedTokenAccountIdempotent(payer, owner, a.programs.usdcMint)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, create)
	}

	receive, err := a.programs.receiveMessage(payer, msg, burn, input.Message, input.Attestation)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, receive)

	return &Transaction{
		Kind:   TxMint,
		Chain:  a.desc,
		Solana: &SolanaTx{Instructions: instructions},
	}, nil
}

// Execute signs with a fresh blockhash, sends the transaction and polls its signature.
// When the blockhash expires before the signature is seen, ErrSignatureExpired is returned
// without a hash.
func (a *SolanaAdapter) Execute(ctx context.Context, tx *Transaction) (string, error) {
	if a.signer == nil {
		return "", ErrWalletNotConnected
	}
	if tx == nil || tx.Solana == nil {
		return "", fmt.Errorf("not a Solana transaction")
	}
	chainID := string(a.desc.ID)

	blockhash, err := a.rpc.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	signed, err := a.sign(tx.Solana, blockhash.Hash)
	if err != nil {
		return "", err
	}
	signature := base58.Encode(signed.Signatures[0])

	if _, err := a.rpc.SendTransaction(ctx, signed); err != nil {
		return "", &ExecutionError{Chain: a.desc.ID, Err: err, Logs: SimulationLogs(err)}
	}
	a.logger.InfoWithChain(chainID, "%s transaction sent: %s", tx.Kind, signature)

	return a.confirm(ctx, tx.Kind, signature, blockhash.LastValidBlockHeight)
}

func (a *SolanaAdapter) sign(tx *SolanaTx, recentBlockhash string) (types.Transaction, error) {
	payer := a.signer.PublicKey()
	message := types.NewMessage(types.NewMessageParam{
		FeePayer:        payer,
		RecentBlockhash: recentBlockhash,
		Instructions:    tx.Instructions,
	})

	serialized, err := message.Serialize()
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to serialize message: %v", err)
	}

	required := int(message.Header.NumRequireSignatures)
	signatures := make([]types.Signature, 0, required)
	for _, key := range message.Accounts[:required] {
		if key == payer {
			sig, err := a.signer.Sign(serialized)
			if err != nil {
				return types.Transaction{}, fmt.Errorf("failed to sign transaction: %w", err)
			}
			signatures = append(signatures, sig)
			continue
		}

		found := false
		for _, extra := range tx.Signers {
			if extra.PublicKey == key {
				signatures = append(signatures, extra.Sign(serialized))
				found = true
				break
			}
		}
		if !found {
			return types.Transaction{}, fmt.Errorf("missing signer for %s", key.ToBase58())
		}
	}

	return types.Transaction{Signatures: signatures, Message: message}, nil
}

func (a *SolanaAdapter) confirm(ctx context.Context, kind TxKind, signature string, lastValidBlockHeight uint64) (string, error) {
	chainID := string(a.desc.ID)
	timeout := time.NewTimer(a.opts.timeoutFor(kind, a.desc.Category))
	defer timeout.Stop()

	interval := a.opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := a.rpc.SignatureStatus(ctx, signature)
		if err != nil {
			a.logger.DebugWithChain(chainID, "signature status for %s unavailable: %v", signature, err)
		}

		switch {
		case status != nil && status.Err != nil:
			return "", &ExecutionError{
				Chain:  a.desc.ID,
				TxHash: signature,
				Err:    fmt.Errorf("%w: %v", ErrTransactionReverted, status.Err),
			}
		case status != nil && status.Confirmed:
			a.logger.InfoWithChain(chainID, "%s transaction confirmed: %s", kind, signature)
			return signature, nil
		case status == nil && err == nil:
			height, herr := a.rpc.BlockHeight(ctx)
			if herr == nil && height > lastValidBlockHeight {
				a.logger.NoticeWithChain(chainID, "%s transaction %s expired at block height %d", kind, signature, height)
				return "", fmt.Errorf("%w: %s", ErrSignatureExpired, signature)
			}
		}

		select {
		case <-ctx.Done():
			return signature, ctx.Err()
		case <-timeout.C:
			a.logger.NoticeWithChain(chainID, "%s transaction %s not confirmed in time", kind, signature)
			return signature, fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		case <-ticker.C:
		}
	}
}

func (a *SolanaAdapter) Close() {}
