package model

import (
	"encoding/json"
	"testing"
)

func TestActionUnmarshalFunctionCall(t *testing.T) {
	input := `{"action":"FUNCTION_CALL","method":"act_proposal","deposit":0,"fee":245151398059500000000,"args":"{\"id\": 129, \"action\": \"VoteReject\"}"}`

	var action Action
	if err := json.Unmarshal([]byte(input), &action); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if action.Kind() != ActionFunctionCall {
		t.Fatalf("expected FUNCTION_CALL, got %s", action.Kind())
	}
	method, ok := action.Method()
	if !ok || method != "act_proposal" {
		t.Fatalf("expected act_proposal, got %q (ok=%v)", method, ok)
	}
	if action.FunctionCall.Args != `{"id": 129, "action": "VoteReject"}` {
		t.Fatalf("unexpected args: %s", action.FunctionCall.Args)
	}
	if action.Fee().String() != "245151398059500000000" {
		t.Fatalf("unexpected fee: %s", action.Fee().String())
	}
}

func TestActionUnmarshalTransfer(t *testing.T) {
	input := `{"action":"TRANSFER","method":null,"deposit":100000000000000000000000,"fee":0,"args":null}`

	var action Action
	if err := json.Unmarshal([]byte(input), &action); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if action.Transfer == nil || action.FunctionCall != nil {
		t.Fatalf("expected transfer variant, got %+v", action)
	}
	if _, ok := action.Method(); ok {
		t.Fatalf("transfer should not expose a method")
	}
	if action.Deposit().String() != "100000000000000000000000" {
		t.Fatalf("unexpected deposit: %s", action.Deposit().String())
	}
}

func TestActionUnmarshalOtherKind(t *testing.T) {
	var action Action
	if err := json.Unmarshal([]byte(`{"action":"ADD_KEY","deposit":0,"fee":0}`), &action); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if action.Other == nil || action.Kind() != "ADD_KEY" {
		t.Fatalf("expected ADD_KEY variant, got %+v", action)
	}
}

func TestActionObjectArgsKeptVerbatim(t *testing.T) {
	var action Action
	input := `{"action":"FUNCTION_CALL","method":"on_proposal_callback","deposit":0,"fee":0,"args":{"proposal_id":122}}`
	if err := json.Unmarshal([]byte(input), &action); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if action.FunctionCall.Args != `{"proposal_id":122}` {
		t.Fatalf("unexpected args: %s", action.FunctionCall.Args)
	}
}

func TestActionUnmarshalRejectsInconsistentShapes(t *testing.T) {
	cases := map[string]string{
		"call without method":  `{"action":"FUNCTION_CALL","method":null,"deposit":0,"fee":0}`,
		"transfer with method": `{"action":"TRANSFER","method":"add_proposal","deposit":0,"fee":0}`,
		"missing kind":         `{"method":null,"deposit":0,"fee":0}`,
	}
	for name, input := range cases {
		var action Action
		if err := json.Unmarshal([]byte(input), &action); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestActionMarshalTransferHasNullMethod(t *testing.T) {
	action := Action{Transfer: &Transfer{Deposit: NewAmount(5), Fee: NewAmount(1)}}
	data, err := json.Marshal(action)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["action"] != "TRANSFER" {
		t.Fatalf("unexpected action: %v", decoded["action"])
	}
	if method, ok := decoded["method"]; !ok || method != nil {
		t.Fatalf("expected method null, got %v", method)
	}
	if decoded["deposit"] != "5" {
		t.Fatalf("deposit should be a string, got %v", decoded["deposit"])
	}
}
