package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSessionHappyPath(t *testing.T) {
	s := NewSession()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, StatusPending, s.Status)

	events := []ProtocolStep{
		{Name: StepApprove, State: StatePending},
		{Name: StepApprove, State: StateSuccess, TxHash: "0xapprove"},
		{Name: StepBurn, State: StatePending},
		{Name: StepBurn, State: StateSuccess, TxHash: "0xburn"},
		{Name: StepFetchAttestation, State: StatePending},
		{Name: StepFetchAttestation, State: StateSuccess},
		{Name: StepMint, State: StatePending},
		{Name: StepMint, State: StateSuccess, TxHash: "0xmint"},
	}
	expected := []SessionStatus{
		StatusPending, StatusPending,
		StatusBurning, StatusBurned,
		StatusAttesting, StatusAttested,
		StatusMinting, StatusCompleted,
	}

	for i, ev := range events {
		require.NoError(t, s.ApplyStep(ev))
		assert.Equal(t, expected[i], s.Status, "after event %d", i)
	}
	assert.Equal(t, "0xburn", s.SourceTxHash)
	assert.Equal(t, "0xmint", s.DestTxHash)
	assert.Empty(t, s.ErrorMessage)
	assert.True(t, s.Status.IsTerminal())
}

func TestSessionErrorEventFails(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.ApplyStep(ProtocolStep{Name: StepBurn, State: StatePending}))
	require.NoError(t, s.ApplyStep(ProtocolStep{Name: StepBurn, State: StateError, Err: errors.New("insufficient funds")}))

	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, "insufficient funds", s.ErrorMessage)

	err := s.ApplyStep(ProtocolStep{Name: StepMint, State: StatePending})
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StatusFailed, s.Status)
}

func TestSessionErrorEventCarriesTerminalStatus(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.ApplyStep(ProtocolStep{Name: StepBurn, State: StatePending}))
	require.NoError(t, s.ApplyStep(ProtocolStep{
		Name:     StepBurn,
		State:    StateError,
		Err:      errors.New("burn expired"),
		Terminal: StatusExpired,
	}))

	assert.Equal(t, StatusExpired, s.Status)
	assert.Equal(t, "burn expired", s.ErrorMessage)
}

func TestRecoverySessionStartsBurned(t *testing.T) {
	s := NewRecoverySession("0xabc")
	assert.Equal(t, StatusBurned, s.Status)
	assert.Equal(t, "0xabc", s.SourceTxHash)

	err := s.Advance(StatusBurning)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	require.NoError(t, s.ApplyStep(ProtocolStep{Name: StepFetchAttestation, State: StatePending}))
	assert.Equal(t, StatusAttesting, s.Status)
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		ok       bool
	}{
		{StatusPending, StatusBurning, true},
		{StatusPending, StatusBurned, false},
		{StatusBurned, StatusBurning, false},
		{StatusMinting, StatusCompleted, true},
		{StatusAttesting, StatusExpired, true},
		{StatusCompleted, StatusFailed, false},
		{StatusExpired, StatusFailed, false},
		{SessionStatus("UNKNOWN"), StatusFailed, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			err := ValidateTransition(tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrIllegalTransition)
			}
		})
	}
}

func TestFailRequiresFailureStatus(t *testing.T) {
	s := NewSession()
	assert.Error(t, s.Fail(StatusCompleted, "nope"))
	require.NoError(t, s.Fail(StatusExpired, "burn signature expired"))
	assert.Equal(t, StatusExpired, s.Status)
	assert.Equal(t, "burn signature expired", s.ErrorMessage)
}

func TestSessionNeverRegresses(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewSession()
		if rapid.Bool().Draw(t, "recovery") {
			s = NewRecoverySession("0xabc")
		}

		steps := rapid.SliceOf(rapid.Custom(func(t *rapid.T) ProtocolStep {
			return ProtocolStep{
				Name:   rapid.SampledFrom(Steps).Draw(t, "name"),
				State:  rapid.SampledFrom([]StepState{StatePending, StateSuccess, StateError, StateNoop}).Draw(t, "state"),
				TxHash: rapid.SampledFrom([]string{"", "0x1"}).Draw(t, "hash"),
			}
		})).Draw(t, "steps")

		for _, step := range steps {
			before := s.Status
			_ = s.ApplyStep(step)
			after := s.Status

			if after == before {
				continue
			}
			if before.IsTerminal() {
				t.Fatalf("terminal status %s changed to %s", before, after)
			}
			if after.IsFailure() {
				continue
			}
			if after.Rank() != before.Rank()+1 {
				t.Fatalf("status jumped from %s to %s", before, after)
			}
		}
	})
}
