package nearrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type capturedRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

func TestCallFunctionAtBlock(t *testing.T) {
	var got capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// "130" as bytes
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":{"result":[49,51,48],"logs":[],"block_height":135106178,"block_hash":"abc"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL}, nil)
	result, err := client.CallFunction(context.Background(), "testing-astradao.sputnik-dao.near", "get_last_proposal_id", map[string]interface{}{}, 135106178)
	if err != nil {
		t.Fatalf("call function: %v", err)
	}
	if string(result) != "130" {
		t.Fatalf("unexpected result: %s", result)
	}

	if got.JSONRPC != "2.0" || got.Method != MethodQuery {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	var params map[string]interface{}
	if err := json.Unmarshal(got.Params, &params); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if params["request_type"] != "call_function" || params["method_name"] != "get_last_proposal_id" {
		t.Fatalf("unexpected params: %v", params)
	}
	if params["block_id"] != float64(135106178) {
		t.Fatalf("expected block_id, got %v", params["block_id"])
	}
	if _, ok := params["finality"]; ok {
		t.Fatalf("finality must not be sent with block_id")
	}
	args, err := base64.StdEncoding.DecodeString(params["args_base64"].(string))
	if err != nil || string(args) != "{}" {
		t.Fatalf("unexpected args: %s (%v)", args, err)
	}
}

func TestCallFunctionFinal(t *testing.T) {
	var got capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":{"result":[110,117,108,108]}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL}, nil)
	if _, err := client.CallFunction(context.Background(), "dao.near", "get_policy", nil, 0); err != nil {
		t.Fatalf("call function: %v", err)
	}
	var params map[string]interface{}
	_ = json.Unmarshal(got.Params, &params)
	if params["finality"] != "final" {
		t.Fatalf("expected finality final, got %v", params)
	}
}

func TestCallFunctionErrors(t *testing.T) {
	cases := map[string]string{
		"envelope": `{"jsonrpc":"2.0","id":"1","error":{"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_BLOCK"}}}`,
		"result":   `{"jsonrpc":"2.0","id":"1","result":{"error":"wasm execution failed with error: ERR_NO_PROPOSAL","logs":[]}}`,
	}
	for name, body := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client := NewClient(Config{URL: server.URL}, nil)
		_, err := client.CallFunction(context.Background(), "dao.near", "get_proposal", map[string]uint64{"id": 1}, 10)
		server.Close()
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_BLOCK"}}}`))
	}))
	defer server.Close()
	client := NewClient(Config{URL: server.URL}, nil)
	_, err := client.CallFunction(context.Background(), "dao.near", "get_proposal", nil, 10)
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Name != "HANDLER_ERROR" {
		t.Fatalf("expected rpc Error, got %v", err)
	}
}

type countingViewer struct {
	calls  int
	result []byte
}

func (v *countingViewer) CallFunction(ctx context.Context, account, method string, args interface{}, blockHeight uint64) ([]byte, error) {
	v.calls++
	return v.result, nil
}

func TestCachedViewerInMemory(t *testing.T) {
	next := &countingViewer{result: []byte(`{"id":1}`)}
	viewer, err := NewCachedViewer(next, CacheConfig{}, nil)
	if err != nil {
		t.Fatalf("new cached viewer: %v", err)
	}
	defer viewer.Close()

	ctx := context.Background()
	args := map[string]uint64{"id": 1}
	for i := 0; i < 3; i++ {
		out, err := viewer.CallFunction(ctx, "dao.near", "get_proposal", args, 100)
		if err != nil || string(out) != `{"id":1}` {
			t.Fatalf("unexpected result: %s %v", out, err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", next.calls)
	}

	if _, err := viewer.CallFunction(ctx, "dao.near", "get_proposal", args, 101); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := viewer.CallFunction(ctx, "dao.near", "get_proposal", map[string]uint64{"id": 2}, 100); err != nil {
		t.Fatalf("call: %v", err)
	}
	if next.calls != 3 {
		t.Fatalf("different block or args must miss the cache, got %d calls", next.calls)
	}

	_, _ = viewer.CallFunction(ctx, "dao.near", "get_proposal", args, 0)
	_, _ = viewer.CallFunction(ctx, "dao.near", "get_proposal", args, 0)
	if next.calls != 5 {
		t.Fatalf("final reads must not be cached, got %d calls", next.calls)
	}
}

func TestCachedViewerLogsRedisErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	next := &countingViewer{result: []byte(`{"id":1}`)}
	// nothing listens on port 1
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()
	viewer := &CachedViewer{
		next:   next,
		cache:  client,
		ttl:    time.Minute,
		logger: zap.New(core),
		local:  map[string][]byte{},
	}

	out, err := viewer.CallFunction(context.Background(), "dao.near", "get_proposal", map[string]uint64{"id": 1}, 100)
	if err != nil || string(out) != `{"id":1}` {
		t.Fatalf("cache failures must fall through to the node: %s %v", out, err)
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", next.calls)
	}
	if logs.FilterMessage("view cache read failed").Len() != 1 {
		t.Fatalf("expected read failure logged, got %v", logs.All())
	}
	if logs.FilterMessage("view cache write failed").Len() != 1 {
		t.Fatalf("expected write failure logged, got %v", logs.All())
	}
}
