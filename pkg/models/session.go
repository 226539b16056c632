package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SessionStatus is the coarse-grained status of one transfer
type SessionStatus string

const (
	StatusPending   SessionStatus = "PENDING"
	StatusBurning   SessionStatus = "BURNING"
	StatusBurned    SessionStatus = "BURNED"
	StatusAttesting SessionStatus = "ATTESTING"
	StatusAttested  SessionStatus = "ATTESTED"
	StatusMinting   SessionStatus = "MINTING"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusFailed    SessionStatus = "FAILED"
	StatusExpired   SessionStatus = "EXPIRED"
)

// ForwardStatuses lists the in-flight statuses in protocol order, ending with COMPLETED
var ForwardStatuses = []SessionStatus{
	StatusPending,
	StatusBurning,
	StatusBurned,
	StatusAttesting,
	StatusAttested,
	StatusMinting,
	StatusCompleted,
}

// ErrIllegalTransition is returned when a status change is not a documented edge
var ErrIllegalTransition = errors.New("illegal session transition")

// legalTransitions holds every allowed edge. Terminal statuses have no outgoing edges.
var legalTransitions = map[SessionStatus]map[SessionStatus]bool{
	StatusPending: {
		StatusBurning: true,
		StatusFailed:  true,
		StatusExpired: true,
	},
	StatusBurning: {
		StatusBurned:  true,
		StatusFailed:  true,
		StatusExpired: true,
	},
	StatusBurned: {
		StatusAttesting: true,
		StatusFailed:    true,
		StatusExpired:   true,
	},
	StatusAttesting: {
		StatusAttested: true,
		StatusFailed:   true,
		StatusExpired:  true,
	},
	StatusAttested: {
		StatusMinting: true,
		StatusFailed:  true,
		StatusExpired: true,
	},
	StatusMinting: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusExpired:   true,
	},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusExpired:   {},
}

// ValidateTransition reports whether from -> to is a documented edge
func ValidateTransition(from, to SessionStatus) error {
	next, ok := legalTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %s", ErrIllegalTransition, from)
	}
	if !next[to] {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// IsTerminal reports whether no further transitions are possible
func (s SessionStatus) IsTerminal() bool {
	return len(legalTransitions[s]) == 0
}

// IsFailure reports whether the status is one of the terminal failure statuses
func (s SessionStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusExpired
}

// Rank returns the position of s in ForwardStatuses, or -1 for failure statuses
func (s SessionStatus) Rank() int {
	for i, f := range ForwardStatuses {
		if f == s {
			return i
		}
	}
	return -1
}

// Session tracks one transfer call. It is owned by a single orchestration call
// and is not safe for concurrent use.
type Session struct {
	ID           string
	Status       SessionStatus
	SourceTxHash string
	DestTxHash   string
	// ErrorMessage is only set in a terminal failure status
	ErrorMessage string
	BurnAttempts int
}

// NewSession creates a session for a new transfer
func NewSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		Status: StatusPending,
	}
}

// NewRecoverySession creates a session for a transfer whose burn is already confirmed
func NewRecoverySession(sourceTxHash string) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Status:       StatusBurned,
		SourceTxHash: sourceTxHash,
	}
}

// Advance moves the session to status to. Staying in the current status is a no-op.
func (s *Session) Advance(to SessionStatus) error {
	if s.Status == to {
		return nil
	}
	if err := ValidateTransition(s.Status, to); err != nil {
		return err
	}
	s.Status = to
	return nil
}

// Fail moves the session to a terminal failure status and records the message
func (s *Session) Fail(to SessionStatus, message string) error {
	if !to.IsFailure() {
		return fmt.Errorf("%w: %s is not a failure status", ErrIllegalTransition, to)
	}
	if err := s.Advance(to); err != nil {
		return err
	}
	s.ErrorMessage = message
	return nil
}

// ApplyStep maps a progress event to the session status it implies.
// Approve events and noop states leave the status unchanged.
func (s *Session) ApplyStep(step ProtocolStep) error {
	if step.State == StateError {
		msg := ""
		if step.Err != nil {
			msg = step.Err.Error()
		}
		to := step.Terminal
		if to == "" {
			to = StatusFailed
		}
		return s.Fail(to, msg)
	}

	var to SessionStatus
	switch {
	case step.Name == StepBurn && step.State == StatePending:
		to = StatusBurning
	case step.Name == StepBurn && step.State == StateSuccess:
		to = StatusBurned
	case step.Name == StepFetchAttestation && step.State == StatePending:
		to = StatusAttesting
	case step.Name == StepFetchAttestation && step.State == StateSuccess:
		to = StatusAttested
	case step.Name == StepMint && step.State == StatePending:
		to = StatusMinting
	case step.Name == StepMint && step.State == StateSuccess:
		to = StatusCompleted
	default:
		return nil
	}

	if err := s.Advance(to); err != nil {
		return err
	}
	switch to {
	case StatusBurned:
		if step.TxHash != "" {
			s.SourceTxHash = step.TxHash
		}
	case StatusCompleted:
		s.DestTxHash = step.TxHash
	}
	return nil
}

// Snapshot returns a copy safe to hand to readers
func (s *Session) Snapshot() Session {
	return *s
}
