package model

import "time"

// DAOWindowMetrics stores aggregated activity for one DAO over a window.
type DAOWindowMetrics struct {
	Contract         string
	WindowSizeSecs   int64
	WindowStart      time.Time
	WindowEnd        time.Time
	TxCount          uint64
	ProposalsAdded   uint64
	VotesApprove     uint64
	VotesReject      uint64
	VotesRemove      uint64
	ProposalsRemoved uint64
	Finalized        uint64
	Deposit          string
	Fees             string
	FirstBlock       uint64
	LastBlock        uint64
}
