package license

import "github.com/bizgrid/backend/internal/models"

// StrikeState is the tamper escalation state derived from a strike count.
// Modeling it explicitly keeps the sweep and the evaluator reading the same
// thresholds.
type StrikeState int

const (
	// StrikeClean - no divergence ever detected
	StrikeClean StrikeState = iota
	// StrikeWarning - one or two strikes; license stays Active with a
	// warning message
	StrikeWarning
	// StrikeSuspended - the strike count reached the limit; the record is
	// hard-deleted and the owning account deactivated
	StrikeSuspended
)

// StrikeStateFor maps a strike count to its state.
func StrikeStateFor(count int) StrikeState {
	switch {
	case count <= 0:
		return StrikeClean
	case count < models.TamperStrikeLimit:
		return StrikeWarning
	default:
		return StrikeSuspended
	}
}

// NextStrike applies one detected divergence to the current count and
// returns the new count with its resulting state.
func NextStrike(count int) (int, StrikeState) {
	next := count + 1
	return next, StrikeStateFor(next)
}
