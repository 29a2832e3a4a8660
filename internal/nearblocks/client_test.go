package nearblocks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sputnikScope/internal/fixture"
)

func TestPaginationParams(t *testing.T) {
	cases := []struct {
		perPage int
		order   string
		page    int
		want    string
	}{
		{0, "", 0, "?per_page=25&order=asc&page=1"},
		{50, "", 0, "?per_page=50&order=asc&page=1"},
		{0, "desc", 0, "?per_page=25&order=desc&page=1"},
		{0, "", 3, "?per_page=25&order=asc&page=3"},
		{100, "desc", 5, "?per_page=100&order=desc&page=5"},
	}
	for _, tc := range cases {
		if got := paginationParams(tc.perPage, tc.order, tc.page); got != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}
}

func TestWithCursorParam(t *testing.T) {
	base := "?per_page=50&order=asc&page=1"

	if got := withCursorParam(base, "", 0); got != base+"&after_block=0" {
		t.Fatalf("unexpected params: %s", got)
	}
	if got := withCursorParam(base, "", 12345); got != base+"&after_block=12345" {
		t.Fatalf("unexpected params: %s", got)
	}
	if got := withCursorParam(base, "abc123", 12345); got != base+"&cursor=abc123" {
		t.Fatalf("cursor should win over after_block: %s", got)
	}
}

func TestAccountTxns(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(fixture.Raw())
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/", APIKey: "secret"}, nil)
	page, err := client.AccountTxns(context.Background(), fixture.Account, PageRequest{Cursor: "9968066800"})
	if err != nil {
		t.Fatalf("account txns: %v", err)
	}

	if gotPath != "/v1/account/"+fixture.Account+"/txns" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotQuery != "per_page=25&order=asc&page=1&cursor=9968066800" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if len(page.Txns) != 50 || !page.HasMore() {
		t.Fatalf("unexpected page: %d txns, more=%v", len(page.Txns), page.HasMore())
	}
}

func TestAccountTxnsLastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after_block") != "135000000" {
			t.Errorf("expected after_block param, got %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"txns":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	page, err := client.AccountTxns(context.Background(), fixture.Account, PageRequest{AfterBlock: 135000000})
	if err != nil {
		t.Fatalf("account txns: %v", err)
	}
	if page.HasMore() || len(page.Txns) != 0 {
		t.Fatalf("expected empty last page, got %+v", page)
	}
}

func TestAccountTxnsAPIError(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}))

		client := NewClient(Config{BaseURL: server.URL}, nil)
		_, err := client.AccountTxns(context.Background(), fixture.Account, PageRequest{})
		server.Close()

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: expected APIError, got %v", tc.status, err)
		}
		if apiErr.StatusCode != tc.status || apiErr.Retryable() != tc.retryable {
			t.Fatalf("status %d: unexpected error %+v retryable=%v", tc.status, apiErr, apiErr.Retryable())
		}
	}
}

func TestAccountTxnsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"txns":[{"id":"1","actions":[{"action":"FUNCTION_CALL","method":null}]}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := client.AccountTxns(context.Background(), fixture.Account, PageRequest{})

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestReceiptByID(t *testing.T) {
	var keyword string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search/receipts" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		keyword = r.URL.Query().Get("keyword")
		_, _ = w.Write([]byte(`{"txns":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	if _, err := client.ReceiptByID(context.Background(), "692tHFoeCUDWs9PSdvrb3FiZEHvso6pzrjgy8VK8RVVG"); err != nil {
		t.Fatalf("receipt lookup: %v", err)
	}
	if keyword != "692tHFoeCUDWs9PSdvrb3FiZEHvso6pzrjgy8VK8RVVG" {
		t.Fatalf("unexpected keyword: %s", keyword)
	}
}
