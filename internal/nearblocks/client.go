// Package nearblocks is a client for the NearBlocks REST API.
package nearblocks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sputnikScope/internal/model"
)

const (
	DefaultBaseURL = "https://api.nearblocks.io/"
	DefaultPerPage = 25
	DefaultOrder   = "asc"
	DefaultPage    = 1

	// DefaultRatePerMinute matches the NearBlocks free plan.
	DefaultRatePerMinute = 150
)

// Config configures a Client.
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerMinute int
}

// Client fetches account transaction pages.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetHostURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		tracer:  otel.Tracer("sputnikScope/nearblocks"),
	}
}

// PageRequest selects one page of an account feed. A non-empty Cursor takes
// precedence over AfterBlock.
type PageRequest struct {
	PerPage    int
	Order      string
	Page       int
	Cursor     string
	AfterBlock uint64
}

// AccountTxns fetches one page of transactions touching account.
func (c *Client) AccountTxns(ctx context.Context, account string, req PageRequest) (model.TxnPage, error) {
	query := withCursorParam(paginationParams(req.PerPage, req.Order, req.Page), req.Cursor, req.AfterBlock)
	path := "/v1/account/" + url.PathEscape(account) + "/txns" + query

	ctx, span := c.tracer.Start(ctx, "nearblocks.account_txns", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("near.account", account),
		attribute.String("nearblocks.cursor", req.Cursor),
		attribute.Int64("nearblocks.after_block", int64(req.AfterBlock)),
	)

	page, err := c.getPage(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.TxnPage{}, err
	}
	span.SetAttributes(attribute.Int("nearblocks.txns", len(page.Txns)))
	return page, nil
}

// ReceiptByID looks up the transactions carrying a receipt.
func (c *Client) ReceiptByID(ctx context.Context, receiptID string) (model.TxnPage, error) {
	ctx, span := c.tracer.Start(ctx, "nearblocks.search_receipt", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("near.receipt_id", receiptID))

	page, err := c.getPage(ctx, "/v1/search/receipts?keyword="+url.QueryEscape(receiptID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.TxnPage{}, err
	}
	return page, nil
}

func (c *Client) getPage(ctx context.Context, path string) (model.TxnPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.TxnPage{}, err
	}

	c.logger.Debug("nearblocks request", zap.String("path", path))
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return model.TxnPage{}, fmt.Errorf("nearblocks request: %w", err)
	}
	if !resp.IsSuccess() {
		return model.TxnPage{}, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var page model.TxnPage
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return model.TxnPage{}, &DecodeError{Err: err}
	}
	c.logger.Debug("nearblocks response", zap.String("path", path), zap.Int("txns", len(page.Txns)))
	return page, nil
}

func paginationParams(perPage int, order string, page int) string {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if order == "" {
		order = DefaultOrder
	}
	if page <= 0 {
		page = DefaultPage
	}
	return fmt.Sprintf("?per_page=%d&order=%s&page=%d", perPage, url.QueryEscape(order), page)
}

func withCursorParam(base string, cursor string, afterBlock uint64) string {
	if cursor == "" {
		return fmt.Sprintf("%s&after_block=%d", base, afterBlock)
	}
	return base + "&cursor=" + url.QueryEscape(cursor)
}
