package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ProposalStatus mirrors the Sputnik DAO proposal status enum.
type ProposalStatus string

const (
	StatusInProgress ProposalStatus = "InProgress"
	StatusApproved   ProposalStatus = "Approved"
	StatusRejected   ProposalStatus = "Rejected"
	StatusRemoved    ProposalStatus = "Removed"
	StatusExpired    ProposalStatus = "Expired"
	StatusMoved      ProposalStatus = "Moved"
	StatusFailed     ProposalStatus = "Failed"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusApproved, StatusRejected, StatusRemoved,
		StatusExpired, StatusMoved, StatusFailed:
		return true
	}
	return false
}

// ProposalAction is the act_proposal action enum.
type ProposalAction string

const (
	ActionAddProposal    ProposalAction = "AddProposal"
	ActionRemoveProposal ProposalAction = "RemoveProposal"
	ActionVoteApprove    ProposalAction = "VoteApprove"
	ActionVoteReject     ProposalAction = "VoteReject"
	ActionVoteRemove     ProposalAction = "VoteRemove"
	ActionFinalize       ProposalAction = "Finalize"
	ActionMoveToHub      ProposalAction = "MoveToHub"
)

func (a ProposalAction) Valid() bool {
	switch a {
	case ActionAddProposal, ActionRemoveProposal, ActionVoteApprove, ActionVoteReject,
		ActionVoteRemove, ActionFinalize, ActionMoveToHub:
		return true
	}
	return false
}

// Removes reports whether the action deletes the proposal from contract state.
func (a ProposalAction) Removes() bool {
	return a == ActionVoteRemove || a == ActionRemoveProposal
}

func (a *ProposalAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	action := ProposalAction(s)
	if !action.Valid() {
		return fmt.Errorf("unknown proposal action %q", s)
	}
	*a = action
	return nil
}

// ProposalSnapshot is the stored state of a DAO proposal as of a transaction.
type ProposalSnapshot struct {
	ID             string          `json:"id"`
	ProposalID     uint64          `json:"proposal_id"`
	Description    string          `json:"description"`
	Kind           json.RawMessage `json:"kind"`
	Proposer       string          `json:"proposer"`
	Status         ProposalStatus  `json:"status"`
	SubmissionTime uint64          `json:"submission_time"`
	VoteCounts     json.RawMessage `json:"vote_counts"`
	Votes          json.RawMessage `json:"votes"`
	TotalVotes     int             `json:"total_votes"`
	DAOInstance    string          `json:"dao_instance"`
	ProposalAction string          `json:"proposal_action"`
	TxTimestamp    uint64          `json:"tx_timestamp"`
	Hash           string          `json:"hash"`
	BlockHeight    uint64          `json:"block_height"`
}

// SnapshotID builds the "{proposal_id}_{contract}" key.
func SnapshotID(proposalID uint64, contract string) string {
	return strconv.FormatUint(proposalID, 10) + "_" + contract
}
