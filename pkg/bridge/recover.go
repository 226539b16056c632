package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/speedrun-hq/speedrun-bridge/pkg/adapter"
	"github.com/speedrun-hq/speedrun-bridge/pkg/amount"
	"github.com/speedrun-hq/speedrun-bridge/pkg/attestation"
	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/models"
)

// Recover completes a transfer whose burn already landed. The mint always targets the
// recipient encoded in the attested message; IntendedRecipient is only compared against it.
func (o *Orchestrator) Recover(
	ctx context.Context,
	intent models.RecoveryIntent,
	progress ProgressFunc,
) (*models.BridgeResult, error) {
	if intent.SourceChain == intent.DestChain {
		return nil, ErrSameChain
	}
	source, err := o.resolver.Resolve(intent.SourceChain)
	if err != nil {
		return nil, err
	}
	dest, err := o.resolver.Resolve(intent.DestChain)
	if err != nil {
		return nil, err
	}
	burnTx, err := NormalizeTxID(source.Category, intent.SourceTxID)
	if err != nil {
		return nil, err
	}

	defer o.drain()

	dst, err := o.factory.New(ctx, dest, intent.Wallets)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	destSigner, err := dst.Address()
	if err != nil {
		return nil, fmt.Errorf("%s wallet: %w", dest.Category, err)
	}

	result := &models.BridgeResult{
		Source:     source,
		Dest:       dest,
		DestSigner: destSigner,
	}
	if value, err := amount.ToBaseUnits(intent.Amount); err == nil && value.Sign() > 0 {
		result.Amount = value
	}

	r := newRun(models.NewRecoverySession(burnTx), progress, o.logger)
	r.record(models.ProtocolStep{Name: models.StepApprove, State: models.StateNoop})
	r.record(models.ProtocolStep{Name: models.StepBurn, State: models.StateSuccess, TxHash: burnTx})
	o.logger.InfoWithChain(string(source.ID), "Session %s: recovering burn %s towards %s", r.session.ID, burnTx, dest.ID)

	err = o.recover(ctx, r, dst, source, dest, burnTx, strings.TrimSpace(intent.IntendedRecipient), result)
	return r.finish(result, "recover", err)
}

func (o *Orchestrator) recover(
	ctx context.Context,
	r *run,
	dst adapter.Adapter,
	source, dest chains.ChainDescriptor,
	burnTx string,
	intended string,
	result *models.BridgeResult,
) error {
	r.emit(source.ID, models.ProtocolStep{Name: models.StepFetchAttestation, State: models.StatePending})

	att, err := o.attestations.Fetch(ctx, source, burnTx)
	if err != nil {
		return r.fail(models.StepFetchAttestation, source, models.StatusFailed, err, false)
	}
	if att.DestinationDomain != dest.Domain {
		err = fmt.Errorf("%w: message targets domain %d, %s is domain %d",
			ErrDestinationMismatch, att.DestinationDomain, dest.ID, dest.Domain)
		return r.fail(models.StepFetchAttestation, source, models.StatusFailed, err, false)
	}
	if !att.HasRecipient() {
		return r.fail(models.StepFetchAttestation, source, models.StatusFailed, ErrRecipientNotRecoverable, false)
	}

	result.Recipient = displayRecipient(dest.Category, att.MintRecipient)
	if att.Amount != nil {
		result.Amount = att.Amount
	}

	owner := ""
	if intended != "" {
		if encoded, err := dst.EncodeRecipient(intended); err == nil && encoded == att.MintRecipient {
			owner = intended
		} else {
			o.logger.NoticeWithChain(string(dest.ID), "Session %s: intended recipient %s does not match attested recipient %s, minting to the attested one",
				r.session.ID, intended, result.Recipient)
		}
	}

	r.emit(source.ID, models.ProtocolStep{Name: models.StepFetchAttestation, State: models.StateSuccess, Data: att})

	return o.mint(ctx, r, dst, dest, mintInput(att, owner))
}

func mintInput(att *attestation.Attestation, owner string) adapter.MintInput {
	return adapter.MintInput{
		Message:        att.Message,
		Attestation:    att.Attestation,
		SourceDomain:   att.SourceDomain,
		Recipient:      att.MintRecipient,
		RecipientOwner: owner,
	}
}

// displayRecipient renders an attested mint recipient in the destination's address format
func displayRecipient(category chains.Category, recipient cctp.Bytes32) string {
	if category == chains.CategorySolana {
		return recipient.Base58()
	}
	return recipient.EVMAddress().Hex()
}
