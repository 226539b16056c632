// Package status projects a transfer session onto the checklist shown to users
package status

import (
	"github.com/speedrun-hq/speedrun-bridge/pkg/models"
)

var labels = map[models.SessionStatus]string{
	models.StatusPending:   "Transfer created",
	models.StatusBurning:   "Burning USDC on source chain",
	models.StatusBurned:    "Burn confirmed",
	models.StatusAttesting: "Waiting for attestation",
	models.StatusAttested:  "Attestation received",
	models.StatusMinting:   "Minting USDC on destination chain",
	models.StatusCompleted: "Transfer complete",
	models.StatusFailed:    "Transfer failed",
	models.StatusExpired:   "Transfer expired",
}

// Label returns the user facing name of a status
func Label(s models.SessionStatus) string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Milestone is one line of the checklist
type Milestone struct {
	Status  models.SessionStatus
	Label   string
	Reached bool
}

// Display is the read-only view of a session
type Display struct {
	Milestones []Milestone
	Failed     bool
	Current    string
	Message    string
}

// Project maps a session to its display. PENDING is always reached; a later milestone is
// reached when the session is at or past it. Failed sessions keep PENDING, and the burn
// milestones when a source transaction is known.
func Project(s models.Session) Display {
	d := Display{
		Milestones: make([]Milestone, 0, len(models.ForwardStatuses)),
		Failed:     s.Status.IsFailure(),
		Current:    Label(s.Status),
	}

	rank := s.Status.Rank()
	for i, status := range models.ForwardStatuses {
		reached := i == 0 || (rank >= 0 && i <= rank)
		if d.Failed && s.SourceTxHash != "" && i <= models.StatusBurned.Rank() {
			reached = true
		}
		d.Milestones = append(d.Milestones, Milestone{Status: status, Label: Label(status), Reached: reached})
	}

	switch {
	case d.Failed:
		d.Message = s.ErrorMessage
	case s.Status == models.StatusCompleted:
		d.Message = completionMessage(s.DestTxHash)
	}
	return d
}

func completionMessage(destTx string) string {
	switch destTx {
	case models.MintAlreadyCompleted:
		return "The message was already redeemed. The funds were minted by an earlier attempt."
	case models.MintTimeoutCheckWallet:
		return "The mint was submitted but not confirmed in time. Check the recipient wallet balance."
	case models.MintSignatureExpiredCheckWallet:
		return "The mint signature expired before confirmation was observed. Check the recipient wallet balance."
	default:
		return ""
	}
}
