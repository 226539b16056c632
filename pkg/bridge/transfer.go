package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/speedrun-hq/speedrun-bridge/pkg/adapter"
	"github.com/speedrun-hq/speedrun-bridge/pkg/amount"
	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/errclass"
	"github.com/speedrun-hq/speedrun-bridge/pkg/metrics"
	"github.com/speedrun-hq/speedrun-bridge/pkg/models"
)

// Transfer moves USDC from the source chain to the recipient on the destination chain.
// Validation, configuration and wallet errors are returned without a result and before
// any step is reported. Once the approve step starts, the returned result always
// carries the session and the steps reached, also when err is non-nil.
func (o *Orchestrator) Transfer(
	ctx context.Context,
	intent models.TransferIntent,
	progress ProgressFunc,
) (*models.BridgeResult, error) {
	recipient := strings.TrimSpace(intent.Recipient)
	if recipient == "" {
		return nil, ErrMissingRecipient
	}
	if intent.SourceChain == intent.DestChain {
		return nil, ErrSameChain
	}
	value, err := amount.ToBaseUnits(intent.Amount)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", amount.ErrInvalidAmountFormat)
	}

	source, err := o.resolver.Resolve(intent.SourceChain)
	if err != nil {
		return nil, err
	}
	dest, err := o.resolver.Resolve(intent.DestChain)
	if err != nil {
		return nil, err
	}

	defer o.drain()

	src, err := o.factory.New(ctx, source, intent.Wallets)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := o.factory.New(ctx, dest, intent.Wallets)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	sourceAddress, err := src.Address()
	if err != nil {
		return nil, fmt.Errorf("%s wallet: %w", source.Category, err)
	}
	destSigner, err := dst.Address()
	if err != nil {
		return nil, fmt.Errorf("%s wallet: %w", dest.Category, err)
	}
	mintRecipient, err := dst.EncodeRecipient(recipient)
	if err != nil {
		return nil, err
	}

	result := &models.BridgeResult{
		Source:        source,
		Dest:          dest,
		SourceAddress: sourceAddress,
		DestSigner:    destSigner,
		Recipient:     recipient,
		Amount:        value,
	}

	r := newRun(models.NewSession(), progress, o.logger)
	o.logger.InfoWithChain(string(source.ID), "Session %s: transferring %s USDC to %s on %s",
		r.session.ID, amount.ToDecimalString(value, amount.Decimals), recipient, dest.ID)

	err = o.transfer(ctx, r, src, dst, source, dest, mintRecipient, recipient, value)
	return r.finish(result, "transfer", err)
}

func (o *Orchestrator) transfer(
	ctx context.Context,
	r *run,
	src, dst adapter.Adapter,
	source, dest chains.ChainDescriptor,
	mintRecipient cctp.Bytes32,
	recipientOwner string,
	value *big.Int,
) error {
	if err := o.approve(ctx, r, src, source, value); err != nil {
		return err
	}

	burnTx, err := o.burn(ctx, r, src, source, adapter.BurnTarget{Domain: dest.Domain, MintRecipient: mintRecipient}, value)
	if err != nil {
		return err
	}

	r.emit(source.ID, models.ProtocolStep{Name: models.StepFetchAttestation, State: models.StatePending})
	att, err := o.attestations.Fetch(ctx, source, burnTx)
	if err != nil {
		return r.fail(models.StepFetchAttestation, source, models.StatusFailed, err, false)
	}
	r.emit(source.ID, models.ProtocolStep{Name: models.StepFetchAttestation, State: models.StateSuccess, Data: att})

	return o.mint(ctx, r, dst, dest, mintInput(att, recipientOwner))
}

func (o *Orchestrator) approve(
	ctx context.Context,
	r *run,
	src adapter.Adapter,
	source chains.ChainDescriptor,
	value *big.Int,
) error {
	r.emit(source.ID, models.ProtocolStep{Name: models.StepApprove, State: models.StatePending})

	tx, err := src.BuildApprove(ctx, value)
	if err != nil {
		return r.fail(models.StepApprove, source, models.StatusFailed, err, true)
	}
	if tx == nil {
		r.emit(source.ID, models.ProtocolStep{Name: models.StepApprove, State: models.StateNoop})
		return nil
	}

	hash, err := src.Execute(ctx, tx)
	if hash == "" {
		if err == nil {
			err = errors.New("approval returned no transaction hash")
		}
		return r.fail(models.StepApprove, source, models.StatusFailed, err, true)
	}
	if err != nil {
		r.unconfirmedApproval = hash
		o.logger.NoticeWithChain(string(source.ID), "Approval %s submitted but not confirmed, the burn may fail until it lands: %v", hash, err)
	}
	r.emit(source.ID, models.ProtocolStep{Name: models.StepApprove, State: models.StateSuccess, TxHash: hash})
	return nil
}

// burn submits the burn, resubmitting only when the previous attempt expired before
// landing. An observed hash always ends the loop.
func (o *Orchestrator) burn(
	ctx context.Context,
	r *run,
	src adapter.Adapter,
	source chains.ChainDescriptor,
	target adapter.BurnTarget,
	value *big.Int,
) (string, error) {
	r.emit(source.ID, models.ProtocolStep{Name: models.StepBurn, State: models.StatePending})

	var lastErr error
	for attempt := 1; attempt <= o.cfg.BurnMaxAttempts; attempt++ {
		r.session.BurnAttempts = attempt

		tx, err := src.BuildBurn(ctx, target, value)
		if err != nil {
			metrics.BurnAttempts.WithLabelValues(string(source.ID)).Observe(float64(attempt))
			return "", r.fail(models.StepBurn, source, models.StatusFailed, err, true)
		}

		hash, err := src.Execute(ctx, tx)
		if hash != "" {
			if err != nil {
				o.logger.NoticeWithChain(string(source.ID), "Burn %s submitted but not confirmed: %v", hash, err)
			}
			metrics.BurnAttempts.WithLabelValues(string(source.ID)).Observe(float64(attempt))
			r.emit(source.ID, models.ProtocolStep{Name: models.StepBurn, State: models.StateSuccess, TxHash: hash})
			return hash, nil
		}
		if err == nil {
			err = errors.New("burn returned no transaction hash")
		}

		if errclass.Classify(err) != errclass.AmbiguousExpiry {
			metrics.BurnAttempts.WithLabelValues(string(source.ID)).Observe(float64(attempt))
			return "", r.fail(models.StepBurn, source, models.StatusFailed, err, true)
		}

		lastErr = err
		if ctx.Err() != nil {
			metrics.BurnAttempts.WithLabelValues(string(source.ID)).Observe(float64(attempt))
			return "", r.fail(models.StepBurn, source, models.StatusFailed,
				fmt.Errorf("burn interrupted after expired attempt %d: %w", attempt, ctx.Err()), false)
		}
		o.logger.NoticeWithChain(string(source.ID), "Session %s: burn attempt %d/%d expired before landing",
			r.session.ID, attempt, o.cfg.BurnMaxAttempts)
	}

	metrics.BurnAttempts.WithLabelValues(string(source.ID)).Observe(float64(r.session.BurnAttempts))
	return "", r.fail(models.StepBurn, source, models.StatusExpired, fmt.Errorf("%w: %w", ErrBurnExpired, lastErr), true)
}
