package domain

import "marketmaker/internal/quant"

// ReactionTiming captures the three instants needed to report both
// latency figures the original tracks: how long the full repricing cycle
// took once the book arrived (reaction latency), and how long the
// cancel/place round-trip took once the decision was made (execution
// latency). Reaction latency therefore always spans execution latency.
type ReactionTiming struct {
	BookReceiveTs    quant.TimeStamp // book arrived off the wire
	RepriceDecisionTs quant.TimeStamp // manager decided to reprice
	IssueCompleteTs  quant.TimeStamp // cancel+place round trip finished
}

// ReactionLatency is the time from book receipt to completed
// cancel/place issuance.
func (r ReactionTiming) ReactionLatency() int64 {
	return int64(r.IssueCompleteTs - r.BookReceiveTs)
}

// ExecutionLatency is the time from the repricing decision to completed
// cancel/place issuance.
func (r ReactionTiming) ExecutionLatency() int64 {
	return int64(r.IssueCompleteTs - r.RepriceDecisionTs)
}
