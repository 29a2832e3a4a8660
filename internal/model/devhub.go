package model

import "encoding/json"

// DevHub contract methods that change a proposal or an RFP.
const (
	MethodSetBlockHeightCallback        = "set_block_height_callback"
	MethodEditProposal                  = "edit_proposal"
	MethodEditProposalTimeline          = "edit_proposal_timeline"
	MethodEditProposalVersionedTimeline = "edit_proposal_versioned_timeline"
	MethodEditProposalLinkedRFP         = "edit_proposal_linked_rfp"
	MethodEditProposalInternal          = "edit_proposal_internal"
	MethodSetRFPBlockHeightCallback     = "set_rfp_block_height_callback"
	MethodEditRFP                       = "edit_rfp"
	MethodEditRFPTimeline               = "edit_rfp_timeline"
	MethodEditRFPInternal               = "edit_rfp_internal"
	MethodCancelRFP                     = "cancel_rfp"
)

// DevHubEntity names what a DevHub call touches.
type DevHubEntity string

const (
	EntityProposal DevHubEntity = "proposal"
	EntityRFP      DevHubEntity = "rfp"
)

// DevHubCallData is the decoded payload of a DevHub call.
type DevHubCallData struct {
	Entity   DevHubEntity `json:"entity"`
	ID       uint64       `json:"id"`
	AuthorID string       `json:"author_id,omitempty"`
}

// DevHubProposalSnapshot is a DevHub proposal as of one transaction. Rows are
// keyed by contract, proposal id and transaction timestamp.
type DevHubProposalSnapshot struct {
	Contract                           string          `json:"contract"`
	ProposalID                         uint64          `json:"proposal_id"`
	AuthorID                           string          `json:"author_id"`
	BlockHeight                        uint64          `json:"block_height"`
	Timestamp                          uint64          `json:"ts"`
	EditorID                           string          `json:"editor_id"`
	SocialDBPostBlockHeight            uint64          `json:"social_db_post_block_height"`
	Labels                             json.RawMessage `json:"labels"`
	ProposalVersion                    string          `json:"proposal_version"`
	ProposalBodyVersion                string          `json:"proposal_body_version"`
	Name                               *string         `json:"name"`
	Category                           *string         `json:"category"`
	Summary                            *string         `json:"summary"`
	Description                        *string         `json:"description"`
	LinkedProposals                    json.RawMessage `json:"linked_proposals"`
	LinkedRFP                          *uint64         `json:"linked_rfp"`
	RequestedSponsorshipUSDAmount      *string         `json:"requested_sponsorship_usd_amount"`
	RequestedSponsorshipPaidInCurrency *string         `json:"requested_sponsorship_paid_in_currency"`
	RequestedSponsor                   *string         `json:"requested_sponsor"`
	ReceiverAccount                    *string         `json:"receiver_account"`
	Supervisor                         *string         `json:"supervisor"`
	Timeline                           json.RawMessage `json:"timeline"`
}

// RFPSnapshot is a DevHub request for proposals as of one transaction.
type RFPSnapshot struct {
	Contract                string          `json:"contract"`
	RFPID                   uint64          `json:"rfp_id"`
	AuthorID                string          `json:"author_id"`
	BlockHeight             uint64          `json:"block_height"`
	Timestamp               uint64          `json:"ts"`
	EditorID                string          `json:"editor_id"`
	SocialDBPostBlockHeight uint64          `json:"social_db_post_block_height"`
	Labels                  json.RawMessage `json:"labels"`
	LinkedProposals         json.RawMessage `json:"linked_proposals"`
	RFPVersion              string          `json:"rfp_version"`
	RFPBodyVersion          string          `json:"rfp_body_version"`
	Name                    *string         `json:"name"`
	Category                *string         `json:"category"`
	Summary                 *string         `json:"summary"`
	Description             *string         `json:"description"`
	Timeline                json.RawMessage `json:"timeline"`
	SubmissionDeadline      uint64          `json:"submission_deadline"`
}
