package domain

import "marketmaker/internal/quant"

// LegState is where one side of the maker's quote sits in its
// place/cancel lifecycle. Transitions: None -> PendingPlace -> Resting
// -> PendingCancel -> None. The manager records only None and Resting;
// no code path moves a leg through the Pending* states or applies a
// timeout to them.
type LegState int

const (
	LegNone LegState = iota
	LegPendingPlace
	LegResting
	LegPendingCancel
)

func (s LegState) String() string {
	switch s {
	case LegNone:
		return "NONE"
	case LegPendingPlace:
		return "PENDING_PLACE"
	case LegResting:
		return "RESTING"
	case LegPendingCancel:
		return "PENDING_CANCEL"
	default:
		return "UNKNOWN"
	}
}

// QuoteLeg is the maker's current order (if any) for one side of the
// market.
type QuoteLeg struct {
	State LegState
	Order *Order // nil when State is None
}

// ActiveQuotePair tracks both legs of the maker's standing quote plus the
// mid price it was last set relative to, so the manager can evaluate the
// hysteresis and cooldown gates before repricing.
type ActiveQuotePair struct {
	Symbol       string
	Bid          QuoteLeg
	Ask          QuoteLeg
	LastMidPrice quant.Amount
	LastUpdateAt quant.TimeStamp
}

// Leg returns the leg for the given side.
func (q *ActiveQuotePair) Leg(side Side) *QuoteLeg {
	if side == Bid {
		return &q.Bid
	}
	return &q.Ask
}
