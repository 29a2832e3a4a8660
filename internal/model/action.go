package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionKind is the NearBlocks action tag.
type ActionKind string

const (
	ActionFunctionCall ActionKind = "FUNCTION_CALL"
	ActionTransfer     ActionKind = "TRANSFER"
)

// FunctionCall is a contract method invocation. Args is the raw argument text;
// its schema depends on the method.
type FunctionCall struct {
	Method  string
	Deposit Amount
	Fee     Amount
	Args    string
}

// Transfer moves a deposit without calling a method.
type Transfer struct {
	Deposit Amount
	Fee     Amount
}

// OtherAction covers remaining action kinds (ADD_KEY, STAKE, ...). It never carries a method.
type OtherAction struct {
	Kind    ActionKind
	Deposit Amount
	Fee     Amount
}

// Action is one receipt action. Exactly one variant is set.
type Action struct {
	FunctionCall *FunctionCall
	Transfer     *Transfer
	Other        *OtherAction
}

func (a Action) Kind() ActionKind {
	switch {
	case a.FunctionCall != nil:
		return ActionFunctionCall
	case a.Transfer != nil:
		return ActionTransfer
	case a.Other != nil:
		return a.Other.Kind
	default:
		return ""
	}
}

// Method returns the called method; ok is false for every non function-call action.
func (a Action) Method() (string, bool) {
	if a.FunctionCall == nil {
		return "", false
	}
	return a.FunctionCall.Method, true
}

func (a Action) Deposit() Amount {
	switch {
	case a.FunctionCall != nil:
		return a.FunctionCall.Deposit
	case a.Transfer != nil:
		return a.Transfer.Deposit
	case a.Other != nil:
		return a.Other.Deposit
	default:
		return Amount{}
	}
}

func (a Action) Fee() Amount {
	switch {
	case a.FunctionCall != nil:
		return a.FunctionCall.Fee
	case a.Transfer != nil:
		return a.Transfer.Fee
	case a.Other != nil:
		return a.Other.Fee
	default:
		return Amount{}
	}
}

type actionJSON struct {
	Action  ActionKind      `json:"action"`
	Method  *string         `json:"method"`
	Deposit Amount          `json:"deposit"`
	Fee     Amount          `json:"fee"`
	Args    json.RawMessage `json:"args"`
}

// MarshalJSON writes the NearBlocks action shape.
func (a Action) MarshalJSON() ([]byte, error) {
	out := actionJSON{
		Action:  a.Kind(),
		Deposit: a.Deposit(),
		Fee:     a.Fee(),
		Args:    json.RawMessage("null"),
	}
	if out.Action == "" {
		return nil, fmt.Errorf("action has no variant set")
	}
	if a.FunctionCall != nil {
		method := a.FunctionCall.Method
		out.Method = &method
		args, err := json.Marshal(a.FunctionCall.Args)
		if err != nil {
			return nil, err
		}
		out.Args = args
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the NearBlocks action shape into its variant.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Action {
	case "":
		return fmt.Errorf("action kind is missing")
	case ActionFunctionCall:
		if raw.Method == nil || *raw.Method == "" {
			return fmt.Errorf("function call action without method")
		}
		args, err := argsText(raw.Args)
		if err != nil {
			return err
		}
		*a = Action{FunctionCall: &FunctionCall{
			Method:  *raw.Method,
			Deposit: raw.Deposit,
			Fee:     raw.Fee,
			Args:    args,
		}}
	case ActionTransfer:
		if raw.Method != nil {
			return fmt.Errorf("transfer action carries method %q", *raw.Method)
		}
		*a = Action{Transfer: &Transfer{Deposit: raw.Deposit, Fee: raw.Fee}}
	default:
		if raw.Method != nil {
			return fmt.Errorf("%s action carries method %q", raw.Action, *raw.Method)
		}
		*a = Action{Other: &OtherAction{Kind: raw.Action, Deposit: raw.Deposit, Fee: raw.Fee}}
	}
	return nil
}

// argsText keeps args as text. A JSON string is unquoted once; any other JSON value
// is kept verbatim.
func argsText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] != '"' {
		return string(raw), nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("decode args: %w", err)
	}
	return text, nil
}
