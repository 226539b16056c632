// Package bridge sequences a USDC transfer through approve, burn, attestation and mint,
// and resumes transfers whose burn already happened.
package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/speedrun-hq/speedrun-bridge/pkg/adapter"
	"github.com/speedrun-hq/speedrun-bridge/pkg/attestation"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/errclass"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/metrics"
	"github.com/speedrun-hq/speedrun-bridge/pkg/models"
)

var (
	ErrMissingRecipient        = errors.New("recipient address is required")
	ErrSameChain               = errors.New("source and destination chains must differ")
	ErrMalformedTransactionID  = errors.New("malformed transaction id")
	ErrRecipientNotRecoverable = errors.New("mint recipient not recoverable from attestation")
	ErrDestinationMismatch     = errors.New("attested destination does not match the requested chain")
	ErrBurnExpired             = errors.New("burn signature expired on every attempt")
)

// DefaultBurnMaxAttempts bounds burn submissions retried after an ambiguous expiry
const DefaultBurnMaxAttempts = 3

// ProgressFunc receives every step transition synchronously
type ProgressFunc func(step models.ProtocolStep)

// StepError is the error returned when a step fails terminally
type StepError struct {
	Step  models.StepName
	Chain chains.ChainID
	Class errclass.Class
	// Diagnosis is the remediation text for execution failures
	Diagnosis string
	Err       error
}

func (e *StepError) Error() string {
	if e.Diagnosis != "" {
		return fmt.Sprintf("%s failed: %s", e.Step, e.Diagnosis)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Config tunes the orchestrator
type Config struct {
	BurnMaxAttempts int
	// DrainDelay is observed before every transfer or recovery returns
	DrainDelay time.Duration
}

// Orchestrator runs transfers. It holds no per-transfer state; every call creates
// its own session and adapters.
type Orchestrator struct {
	resolver     *chains.Resolver
	factory      adapter.Factory
	attestations attestation.Fetcher
	cfg          Config
	logger       logger.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(
	resolver *chains.Resolver,
	factory adapter.Factory,
	attestations attestation.Fetcher,
	cfg Config,
	log logger.Logger,
) *Orchestrator {
	if cfg.BurnMaxAttempts <= 0 {
		cfg.BurnMaxAttempts = DefaultBurnMaxAttempts
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Orchestrator{
		resolver:     resolver,
		factory:      factory,
		attestations: attestations,
		cfg:          cfg,
		logger:       log,
	}
}

func (o *Orchestrator) drain() {
	if o.cfg.DrainDelay > 0 {
		time.Sleep(o.cfg.DrainDelay)
	}
}

// run tracks one transfer call
type run struct {
	logger   logger.Logger
	session  *models.Session
	steps    []models.ProtocolStep
	started  map[models.StepName]time.Time
	progress ProgressFunc
	// unconfirmedApproval is the approval hash submitted without an observed receipt
	unconfirmedApproval string
}

func newRun(session *models.Session, progress ProgressFunc, log logger.Logger) *run {
	if progress == nil {
		progress = func(models.ProtocolStep) {}
	}
	return &run{
		logger:   log,
		session:  session,
		started:  make(map[models.StepName]time.Time),
		progress: progress,
	}
}

// record stores the latest state of a step without emitting it
func (r *run) record(step models.ProtocolStep) {
	for i := range r.steps {
		if r.steps[i].Name == step.Name {
			r.steps[i] = step
			return
		}
	}
	r.steps = append(r.steps, step)
}

func (r *run) observe(chainID chains.ChainID, step models.ProtocolStep) {
	if step.State == models.StatePending {
		r.started[step.Name] = time.Now()
		return
	}
	if start, ok := r.started[step.Name]; ok {
		metrics.StepDuration.WithLabelValues(string(chainID), string(step.Name), string(step.State)).
			Observe(time.Since(start).Seconds())
	}
}

// emit applies a non-error step to the session and reports it
func (r *run) emit(chainID chains.ChainID, step models.ProtocolStep) {
	if err := r.session.ApplyStep(step); err != nil {
		r.logger.ErrorWithChain(string(chainID), "Session %s: %v", r.session.ID, err)
	}
	r.observe(chainID, step)
	r.record(step)
	r.progress(step)
}

// fail ends the session in status and reports the failed step. The returned error
// carries the same message as the session.
func (r *run) fail(
	name models.StepName,
	desc chains.ChainDescriptor,
	status models.SessionStatus,
	err error,
	diagnose bool,
) error {
	class := errclass.Classify(err)
	metrics.ClassifiedErrors.WithLabelValues(string(desc.ID), string(name), class.String()).Inc()

	stepErr := &StepError{Step: name, Chain: desc.ID, Class: class, Err: err}
	if diagnose {
		stepErr.Diagnosis = errclass.Diagnose(desc.Category, desc.ID, err)
		if name == models.StepBurn && r.unconfirmedApproval != "" {
			stepErr.Diagnosis += fmt.Sprintf(" Approval %s was not confirmed and may still be pending; "+
				"wait for it to land before retrying.", r.unconfirmedApproval)
		}
	}

	if ferr := r.session.Fail(status, stepErr.Error()); ferr != nil {
		r.logger.ErrorWithChain(string(desc.ID), "Session %s: %v", r.session.ID, ferr)
	}
	r.logger.ErrorWithChain(string(desc.ID), "Session %s: %v", r.session.ID, stepErr)

	step := models.ProtocolStep{Name: name, State: models.StateError, Err: stepErr, Terminal: status}
	r.observe(desc.ID, step)
	r.record(step)
	r.progress(step)
	return stepErr
}

func (r *run) finish(result *models.BridgeResult, mode string, err error) (*models.BridgeResult, error) {
	result.Steps = append([]models.ProtocolStep(nil), r.steps...)
	result.Session = r.session.Snapshot()
	result.State = models.ResultSuccess
	outcome := "completed"
	if err != nil {
		result.State = models.ResultError
		outcome = string(r.session.Status)
	}
	metrics.Transfers.WithLabelValues(string(result.Source.ID), string(result.Dest.ID), mode, outcome).Inc()
	return result, err
}
