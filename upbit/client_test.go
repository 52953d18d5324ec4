// Copyright (c) 2025 BVK Chaitanya

package upbit

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pamt/dropbot/exchange"
	"github.com/shopspring/decimal"
	"gopkg.in/square/go-jose.v2/jwt"
)

func testRestURL(t *testing.T, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	saved := RestURL
	RestURL = url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/v1"}
	t.Cleanup(func() { RestURL = saved })
}

func TestGetPrice(t *testing.T) {
	testRestURL(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ticker" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if v := r.URL.Query().Get("markets"); v != "KRW-BTC" {
			t.Errorf("unexpected markets %q", v)
		}
		io.WriteString(w, `[{"market":"KRW-BTC","trade_price":50000000.5,"timestamp":1700000000000}]`)
	}))

	c, err := NewPublic(nil /* opts */)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	price, err := c.GetPrice(context.Background(), "KRW-BTC")
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(decimal.NewFromFloat(50000000.5)) {
		t.Fatalf("want 50000000.5, got %s", price)
	}
}

func TestGetBalance(t *testing.T) {
	testRestURL(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("missing bearer token in %q", auth)
		}
		io.WriteString(w, `[{"currency":"BTC","balance":"0.5"},{"currency":"KRW","balance":"123456.78"}]`)
	}))

	c, err := New(&Credentials{AccessKey: "ak", SecretKey: "0123456789abcdef0123456789abcdef"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	balance, err := c.GetBalance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Equal(decimal.NewFromFloat(123456.78)) {
		t.Fatalf("want 123456.78, got %s", balance)
	}
}

func TestAuthorizationClaims(t *testing.T) {
	c, err := New(&Credentials{AccessKey: "ak", SecretKey: "0123456789abcdef0123456789abcdef"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	query := make(url.Values)
	query.Set("uuid", "some-order-id")

	auth, err := c.authorization(query)
	if err != nil {
		t.Fatal(err)
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		t.Fatalf("want a bearer token, got %q", auth)
	}

	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		t.Fatal(err)
	}
	claims := make(map[string]interface{})
	if err := parsed.Claims([]byte("0123456789abcdef0123456789abcdef"), &claims); err != nil {
		t.Fatal(err)
	}

	if v := claims["access_key"]; v != "ak" {
		t.Fatalf("want access_key ak, got %v", v)
	}
	if v, ok := claims["nonce"].(string); !ok || len(v) == 0 {
		t.Fatalf("want a nonce, got %v", claims["nonce"])
	}
	sum := sha512.Sum512([]byte(query.Encode()))
	if v := claims["query_hash"]; v != hex.EncodeToString(sum[:]) {
		t.Fatalf("want query hash %s, got %v", hex.EncodeToString(sum[:]), v)
	}
	if v := claims["query_hash_alg"]; v != "SHA512" {
		t.Fatalf("want SHA512, got %v", v)
	}
}

func TestAuthorizationWithoutQueryHash(t *testing.T) {
	c, err := New(&Credentials{AccessKey: "ak", SecretKey: "0123456789abcdef0123456789abcdef"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	auth, err := c.authorization(nil)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := jwt.ParseSigned(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		t.Fatal(err)
	}
	claims := make(map[string]interface{})
	if err := parsed.Claims([]byte("0123456789abcdef0123456789abcdef"), &claims); err != nil {
		t.Fatal(err)
	}
	// Requests without parameters carry no query hash.
	if _, ok := claims["query_hash"]; ok {
		t.Fatal("want no query_hash claim for an empty query")
	}
}

func TestCheckStatus(t *testing.T) {
	mk := func(status int, name string) error {
		resp := &http.Response{StatusCode: status}
		data := []byte(fmt.Sprintf(`{"error":{"name":"%s","message":"rejected"}}`, name))
		return checkStatus(resp, data)
	}

	if err := mk(http.StatusOK, ""); err != nil {
		t.Fatalf("want nil for 200, got %v", err)
	}
	if err := mk(http.StatusBadRequest, "insufficient_funds_bid"); !errors.Is(err, exchange.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if err := mk(http.StatusBadRequest, "under_min_total_ask"); !errors.Is(err, exchange.ErrBelowMinimum) {
		t.Fatalf("want ErrBelowMinimum, got %v", err)
	}
	if err := mk(http.StatusUnauthorized, "jwt_verification"); !errors.Is(err, exchange.ErrTransient) {
		t.Fatalf("want ErrTransient, got %v", err)
	}
}

func TestMarketBuyFillResolution(t *testing.T) {
	polls := 0
	testRestURL(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/orders":
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"uuid":"oid-1","state":"wait"}`)
		case r.URL.Path == "/v1/order":
			polls++
			if v := r.URL.Query().Get("uuid"); v != "oid-1" {
				t.Errorf("unexpected order uuid %q", v)
			}
			// The trade list lags the order state on the first poll; a fill
			// must not be fabricated from it.
			if polls == 1 {
				io.WriteString(w, `{"uuid":"oid-1","market":"KRW-BTC","state":"cancel","executed_volume":"0.5","trades":[]}`)
				return
			}
			io.WriteString(w, `{"uuid":"oid-1","market":"KRW-BTC","state":"cancel","executed_volume":"0.5","trades":[{"price":"100000","volume":"0.5","funds":"50000"}]}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	opts := &Options{PollOrderInterval: time.Millisecond, RestRate: 1000}
	c, err := New(&Credentials{AccessKey: "ak", SecretKey: "0123456789abcdef0123456789abcdef"}, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	fill, err := c.MarketBuy(context.Background(), "KRW-BTC", decimal.NewFromInt(50000))
	if err != nil {
		t.Fatal(err)
	}
	if polls < 2 {
		t.Fatalf("want the order polled until trades arrive, got %d polls", polls)
	}
	if !fill.Price.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("want fill price 100000, got %s", fill.Price)
	}
	if !fill.Quantity.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("want fill quantity 0.5, got %s", fill.Quantity)
	}
	if !fill.Funds.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("want fill funds 50000, got %s", fill.Funds)
	}
}

func TestQuoteOnlyClientRejectsAuthedCalls(t *testing.T) {
	c, err := NewPublic(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.GetBalance(context.Background()); err == nil {
		t.Fatal("want an error for account access without credentials")
	}
}
