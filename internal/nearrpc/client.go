// Package nearrpc talks to NEAR JSON-RPC nodes for contract view calls.
package nearrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultURL = "https://rpc.mainnet.near.org"

// Config configures a Client.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client issues JSON-RPC calls against one endpoint.
type Client struct {
	http   *resty.Client
	url    string
	logger *zap.Logger
	tracer trace.Tracer
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		http:   httpClient,
		url:    endpoint,
		logger: logger,
		tracer: otel.Tracer("sputnikScope/nearrpc"),
	}
}

func call[T any](ctx context.Context, c *Client, method string, params interface{}) (*T, error) {
	body, err := json.Marshal(request{
		JSONRPC: jsonRPCVersion,
		ID:      defaultRequestID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", method, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("post %s: status %d: %s", method, resp.StatusCode(), resp.String())
	}

	var out Response[T]
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("unmarshal %s response: %w", method, err)
	}
	if out.Err != nil {
		return nil, out.Err
	}
	return &out.Result, nil
}

// CallFunction runs a view method on account at blockHeight (0 means final)
// and returns the raw result bytes.
func (c *Client) CallFunction(ctx context.Context, account, method string, args interface{}, blockHeight uint64) ([]byte, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	params := callFunctionParams{
		RequestType: requestTypeCallFunction,
		AccountID:   account,
		MethodName:  method,
		ArgsBase64:  base64.StdEncoding.EncodeToString(argsJSON),
	}
	if blockHeight > 0 {
		params.BlockID = blockHeight
	} else {
		params.Finality = finalityFinal
	}

	ctx, span := c.tracer.Start(ctx, "nearrpc.call_function", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("near.account", account),
		attribute.String("near.method", method),
		attribute.Int64("near.block_height", int64(blockHeight)),
	)

	result, err := call[CallResult](ctx, c, MethodQuery, params)
	if err == nil && result.Error != "" {
		err = fmt.Errorf("call %s.%s: %s", account, method, result.Error)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("view call failed",
			zap.String("account", account),
			zap.String("method", method),
			zap.Uint64("block_height", blockHeight),
			zap.Error(err),
		)
		return nil, err
	}
	return result.Result, nil
}
