package bridge

import (
	"context"
	"errors"

	"github.com/speedrun-hq/speedrun-bridge/pkg/adapter"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/errclass"
	"github.com/speedrun-hq/speedrun-bridge/pkg/metrics"
	"github.com/speedrun-hq/speedrun-bridge/pkg/models"
)

// mint redeems the attested message with a single submission. The outcome is resolved
// in order: an observed hash, an already redeemed message, a confirmation timeout, an
// expired signature, and only then a failure.
func (o *Orchestrator) mint(
	ctx context.Context,
	r *run,
	dst adapter.Adapter,
	dest chains.ChainDescriptor,
	input adapter.MintInput,
) error {
	r.emit(dest.ID, models.ProtocolStep{Name: models.StepMint, State: models.StatePending})

	tx, err := dst.BuildMint(ctx, input)
	if err != nil {
		metrics.MintOutcomes.WithLabelValues(string(dest.ID), "failed").Inc()
		return r.fail(models.StepMint, dest, models.StatusFailed, err, true)
	}

	hash, err := dst.Execute(ctx, tx)
	hash, outcome, err := resolveMint(hash, err)
	metrics.MintOutcomes.WithLabelValues(string(dest.ID), outcome).Inc()
	if err != nil {
		return r.fail(models.StepMint, dest, models.StatusFailed, err, true)
	}

	switch hash {
	case models.MintAlreadyCompleted:
		o.logger.NoticeWithChain(string(dest.ID), "Session %s: message was already redeemed", r.session.ID)
	case models.MintTimeoutCheckWallet, models.MintSignatureExpiredCheckWallet:
		o.logger.NoticeWithChain(string(dest.ID), "Session %s: mint outcome unknown (%s), check the recipient balance",
			r.session.ID, hash)
	default:
		o.logger.InfoWithChain(string(dest.ID), "Session %s: mint confirmed in %s", r.session.ID, hash)
	}

	r.emit(dest.ID, models.ProtocolStep{Name: models.StepMint, State: models.StateSuccess, TxHash: hash})
	return nil
}

// resolveMint maps an execution result to the recorded destination hash and a metrics
// outcome. A non-nil error means the mint failed.
func resolveMint(hash string, err error) (string, string, error) {
	if hash != "" {
		if err != nil && errclass.Classify(err) == errclass.Timeout {
			return hash, "timeout", nil
		}
		return hash, "confirmed", nil
	}
	if err == nil {
		return "", "failed", errors.New("mint returned no transaction hash")
	}

	switch errclass.Classify(err) {
	case errclass.AlreadyRedeemed:
		return models.MintAlreadyCompleted, "already_completed", nil
	case errclass.Timeout:
		return models.MintTimeoutCheckWallet, "timeout", nil
	case errclass.AmbiguousExpiry:
		return models.MintSignatureExpiredCheckWallet, "expired", nil
	default:
		return "", "failed", err
	}
}
