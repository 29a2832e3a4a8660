// Package devhub decodes NEAR DevHub proposal and RFP calls and stores
// snapshots of the entities they change.
package devhub

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sputnikScope/internal/model"
	"sputnikScope/internal/sputnik"
)

// ContractProposal is the get_proposal view result, and the proposal carried
// by set_block_height_callback.
type ContractProposal struct {
	ProposalVersion         string       `json:"proposal_version"`
	ID                      uint64       `json:"id"`
	AuthorID                string       `json:"author_id"`
	SocialDBPostBlockHeight sputnik.U64  `json:"social_db_post_block_height"`
	Snapshot                ProposalBody `json:"snapshot"`
}

// ProposalBody is the latest proposal snapshot. Fields added by later body
// versions stay empty on older ones.
type ProposalBody struct {
	EditorID                           string          `json:"editor_id"`
	Timestamp                          sputnik.U64     `json:"timestamp"`
	Labels                             json.RawMessage `json:"labels"`
	BodyVersion                        string          `json:"proposal_body_version"`
	Name                               *string         `json:"name"`
	Category                           *string         `json:"category"`
	Summary                            *string         `json:"summary"`
	Description                        *string         `json:"description"`
	LinkedProposals                    json.RawMessage `json:"linked_proposals"`
	LinkedRFP                          *uint64         `json:"linked_rfp"`
	RequestedSponsorshipUSDAmount      json.RawMessage `json:"requested_sponsorship_usd_amount"`
	RequestedSponsorshipPaidInCurrency *string         `json:"requested_sponsorship_paid_in_currency"`
	RequestedSponsor                   *string         `json:"requested_sponsor"`
	ReceiverAccount                    *string         `json:"receiver_account"`
	Supervisor                         *string         `json:"supervisor"`
	Timeline                           json.RawMessage `json:"timeline"`
}

// ContractRFP is the get_rfp view result, and the RFP carried by
// set_rfp_block_height_callback.
type ContractRFP struct {
	RFPVersion              string      `json:"rfp_version"`
	ID                      uint64      `json:"id"`
	AuthorID                string      `json:"author_id"`
	SocialDBPostBlockHeight sputnik.U64 `json:"social_db_post_block_height"`
	Snapshot                RFPBody     `json:"snapshot"`
}

type RFPBody struct {
	EditorID           string          `json:"editor_id"`
	Timestamp          sputnik.U64     `json:"timestamp"`
	Labels             json.RawMessage `json:"labels"`
	LinkedProposals    json.RawMessage `json:"linked_proposals"`
	BodyVersion        string          `json:"rfp_body_version"`
	Name               *string         `json:"name"`
	Category           *string         `json:"category"`
	Summary            *string         `json:"summary"`
	Description        *string         `json:"description"`
	Timeline           json.RawMessage `json:"timeline"`
	SubmissionDeadline sputnik.U64     `json:"submission_deadline"`
}

type callKind struct {
	entity   model.DevHubEntity
	callback bool
}

// methods lists the DevHub calls that change stored state. Callbacks carry
// the new entity; every other call names it by id.
var methods = map[string]callKind{
	model.MethodSetBlockHeightCallback:        {entity: model.EntityProposal, callback: true},
	model.MethodEditProposal:                  {entity: model.EntityProposal},
	model.MethodEditProposalTimeline:          {entity: model.EntityProposal},
	model.MethodEditProposalVersionedTimeline: {entity: model.EntityProposal},
	model.MethodEditProposalLinkedRFP:         {entity: model.EntityProposal},
	model.MethodEditProposalInternal:          {entity: model.EntityProposal},
	model.MethodSetRFPBlockHeightCallback:     {entity: model.EntityRFP, callback: true},
	model.MethodEditRFP:                       {entity: model.EntityRFP},
	model.MethodEditRFPTimeline:               {entity: model.EntityRFP},
	model.MethodEditRFPInternal:               {entity: model.EntityRFP},
	model.MethodCancelRFP:                     {entity: model.EntityRFP},
}

// call is a parsed DevHub call.
type call struct {
	callKind
	method   string
	id       uint64
	proposal *ContractProposal
	rfp      *ContractRFP
}

func (c call) data() model.DevHubCallData {
	data := model.DevHubCallData{Entity: c.entity, ID: c.id}
	switch {
	case c.proposal != nil:
		data.AuthorID = c.proposal.AuthorID
	case c.rfp != nil:
		data.AuthorID = c.rfp.AuthorID
	}
	return data
}

func parseCall(method, args string) (call, error) {
	kind, ok := methods[method]
	if !ok {
		return call{}, fmt.Errorf("%w: %s", sputnik.ErrUnhandledMethod, method)
	}
	c := call{callKind: kind, method: method}

	switch {
	case kind.callback && kind.entity == model.EntityProposal:
		var payload struct {
			Proposal *ContractProposal `json:"proposal"`
		}
		if err := json.Unmarshal([]byte(args), &payload); err != nil {
			return call{}, fmt.Errorf("parse %s args: %w", method, err)
		}
		if payload.Proposal == nil {
			return call{}, fmt.Errorf("parse %s args: missing proposal", method)
		}
		c.id = payload.Proposal.ID
		c.proposal = payload.Proposal
	case kind.callback:
		var payload struct {
			RFP *ContractRFP `json:"rfp"`
		}
		if err := json.Unmarshal([]byte(args), &payload); err != nil {
			return call{}, fmt.Errorf("parse %s args: %w", method, err)
		}
		if payload.RFP == nil {
			return call{}, fmt.Errorf("parse %s args: missing rfp", method)
		}
		c.id = payload.RFP.ID
		c.rfp = payload.RFP
	default:
		var payload struct {
			ID *uint64 `json:"id"`
		}
		if err := json.Unmarshal([]byte(args), &payload); err != nil {
			return call{}, fmt.Errorf("parse %s args: %w", method, err)
		}
		if payload.ID == nil {
			return call{}, fmt.Errorf("parse %s args: missing id", method)
		}
		c.id = *payload.ID
	}
	return c, nil
}

// rawText renders a JSON scalar as text: strings lose their quotes, null and
// absent values become nil.
func rawText(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	text := string(raw)
	return &text
}

func rawOr(raw json.RawMessage, fallback string) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage(fallback)
	}
	return raw
}
