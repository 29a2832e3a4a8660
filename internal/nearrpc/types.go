package nearrpc

import (
	"encoding/json"
	"fmt"
)

const (
	jsonRPCVersion   = "2.0"
	defaultRequestID = "1"

	MethodQuery = "query"

	requestTypeCallFunction = "call_function"
	finalityFinal           = "final"
)

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// Response is the JSON-RPC envelope.
type Response[T any] struct {
	JSONRPC string `json:"jsonrpc"`
	Result  T      `json:"result"`
	Err     *Error `json:"error"`
}

// Error is a NEAR JSON-RPC error object.
type Error struct {
	Name    string          `json:"name"`
	Cause   json.RawMessage `json:"cause"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Name, string(e.Cause))
}

type callFunctionParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality,omitempty"`
	BlockID     uint64 `json:"block_id,omitempty"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

// CallResult is the payload of a call_function query. Some nodes report
// contract failures in Error instead of the envelope.
type CallResult struct {
	Result      []byte   `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight uint64   `json:"block_height"`
	BlockHash   string   `json:"block_hash"`
	Error       string   `json:"error"`
}
