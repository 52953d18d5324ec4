// Copyright (c) 2025 BVK Chaitanya

// Package upbit implements a market client for the Upbit spot exchange. REST
// requests are JWT-signed with the operator's api key pair; current prices
// are served from the websocket ticker stream when it is fresh, with a
// fallback to the public quote api.
package upbit

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pamt/dropbot/ctxutil"
	"github.com/pamt/dropbot/exchange"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
	"golang.org/x/time/rate"

	jose "gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

type Client struct {
	cg ctxutil.CloseGroup

	opts Options

	creds  *Credentials
	signer jose.Signer

	client *http.Client

	limiter *rate.Limiter

	tickerTopic *topic.Topic[*Ticker]

	mu      sync.Mutex
	tickers map[string]*Ticker
}

var _ exchange.Market = &Client{}

// New creates a client for the Upbit exchange. Credentials may be nil for a
// quote-only client; account and order operations then fail with
// os.ErrInvalid.
func New(creds *Credentials, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	var signer jose.Signer
	if creds != nil {
		if err := creds.Check(); err != nil {
			return nil, err
		}
		var err error
		signer, err = jose.NewSigner(
			jose.SigningKey{Algorithm: jose.HS256, Key: []byte(creds.SecretKey)},
			(&jose.SignerOptions{}).WithType("JWT"),
		)
		if err != nil {
			return nil, fmt.Errorf("could not create jwt signer: %w", err)
		}
	}

	c := &Client{
		opts:   *opts,
		creds:  creds,
		signer: signer,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(opts.RestRate), 1),
		tickerTopic: topic.New[*Ticker](),
		tickers:     make(map[string]*Ticker),
	}
	return c, nil
}

// NewPublic creates a quote-only client without credentials.
func NewPublic(opts *Options) (*Client, error) {
	return New(nil, opts)
}

// Close shuts down the websocket stream, if any.
func (c *Client) Close() error {
	c.cg.Close()
	c.tickerTopic.Close()
	return nil
}

// authorization builds the JWT bearer token for an authenticated request.
// Requests with parameters carry a SHA512 hash of the encoded query string.
func (c *Client) authorization(query url.Values) (string, error) {
	if c.signer == nil {
		return "", fmt.Errorf("client has no api credentials: %w", os.ErrInvalid)
	}
	claims := map[string]interface{}{
		"access_key": c.creds.AccessKey,
		"nonce":      uuid.New().String(),
	}
	if len(query) > 0 {
		sum := sha512.Sum512([]byte(query.Encode()))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}
	token, err := jwt.Signed(c.signer).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("could not sign request claims: %w", err)
	}
	return "Bearer " + token, nil
}

// do runs one REST request with rate limiting and a single retry on
// transient failures before the call is reported as failed.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			ctxutil.Sleep(ctx, c.opts.RetryInterval)
			if ctx.Err() != nil {
				break
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("http status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}
	return nil, fmt.Errorf("%v: %w", lastErr, exchange.ErrTransient)
}

// checkStatus maps Upbit api error responses onto the exchange error
// taxonomy.
func checkStatus(resp *http.Response, data []byte) error {
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}
	var e apiError
	_ = json.Unmarshal(data, &e)
	name := e.Error.Name
	switch {
	case strings.Contains(name, "insufficient_funds"):
		return fmt.Errorf("upbit: %s: %s: %w", name, e.Error.Message, exchange.ErrInsufficientFunds)
	case strings.Contains(name, "under_min"):
		return fmt.Errorf("upbit: %s: %s: %w", name, e.Error.Message, exchange.ErrBelowMinimum)
	default:
		return fmt.Errorf("upbit: http status %d: %s: %s: %w", resp.StatusCode, name, e.Error.Message, exchange.ErrTransient)
	}
}

func httpGetJSON[PT *T, T any](ctx context.Context, c *Client, subpath string, query url.Values, authed bool, response PT) error {
	addrURL := &url.URL{
		Scheme:   RestURL.Scheme,
		Host:     RestURL.Host,
		Path:     path.Join(RestURL.Path, subpath),
		RawQuery: query.Encode(),
	}
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if authed {
			auth, err := c.authorization(query)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", auth)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %v: %w", err, exchange.ErrTransient)
	}
	if err := checkStatus(resp, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, response); err != nil {
		return fmt.Errorf("could not unmarshal response: %w", err)
	}
	return nil
}

func httpPostJSON[PT *T, T any](ctx context.Context, c *Client, subpath string, params url.Values, body interface{}, response PT) error {
	addrURL := &url.URL{
		Scheme: RestURL.Scheme,
		Host:   RestURL.Host,
		Path:   path.Join(RestURL.Path, subpath),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, addrURL.String(), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		auth, err := c.authorization(params)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", auth)
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	rdata, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %v: %w", err, exchange.ErrTransient)
	}
	if err := checkStatus(resp, rdata); err != nil {
		return err
	}
	if err := json.Unmarshal(rdata, response); err != nil {
		return fmt.Errorf("could not unmarshal response: %w", err)
	}
	return nil
}

// GetPrice returns the current trade price for a symbol. A fresh streamed
// ticker short-circuits the REST call.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	c.mu.Lock()
	t, ok := c.tickers[symbol]
	c.mu.Unlock()
	if ok && time.Since(t.Time) < c.opts.TickerFreshness {
		return t.Price, nil
	}

	query := make(url.Values)
	query.Set("markets", symbol)
	var infos []*tickerInfo
	if err := httpGetJSON(ctx, c, "/ticker", query, false, &infos); err != nil {
		return decimal.Zero, err
	}
	if len(infos) == 0 {
		return decimal.Zero, fmt.Errorf("no ticker data for %q: %w", symbol, os.ErrNotExist)
	}
	price := infos[0].TradePrice
	c.updateTicker(&Ticker{
		Symbol: symbol,
		Price:  price,
		Time:   time.UnixMilli(infos[0].Timestamp).UTC(),
	})
	return price, nil
}

// GetBalance returns the available KRW balance of the account.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var accounts []*accountInfo
	if err := httpGetJSON(ctx, c, "/accounts", nil, true, &accounts); err != nil {
		return decimal.Zero, err
	}
	for _, a := range accounts {
		if a.Currency == "KRW" {
			return a.Balance, nil
		}
	}
	return decimal.Zero, nil
}

// MarketBuy spends the given KRW amount with an ord_type=price order and
// resolves the fill by polling the order status.
func (c *Client) MarketBuy(ctx context.Context, symbol string, funds decimal.Decimal) (*exchange.Fill, error) {
	req := &orderRequest{
		Market:     symbol,
		Side:       "bid",
		Price:      funds.String(),
		OrdType:    "price",
		Identifier: uuid.New().String(),
	}
	return c.placeOrder(ctx, req)
}

// MarketSell liquidates the given base quantity with an ord_type=market
// order and resolves the fill by polling the order status.
func (c *Client) MarketSell(ctx context.Context, symbol string, quantity decimal.Decimal) (*exchange.Fill, error) {
	req := &orderRequest{
		Market:     symbol,
		Side:       "ask",
		Volume:     quantity.String(),
		OrdType:    "market",
		Identifier: uuid.New().String(),
	}
	return c.placeOrder(ctx, req)
}

func (c *Client) placeOrder(ctx context.Context, req *orderRequest) (*exchange.Fill, error) {
	params := make(url.Values)
	params.Set("market", req.Market)
	params.Set("side", req.Side)
	params.Set("ord_type", req.OrdType)
	if len(req.Volume) != 0 {
		params.Set("volume", req.Volume)
	}
	if len(req.Price) != 0 {
		params.Set("price", req.Price)
	}
	params.Set("identifier", req.Identifier)

	var order orderInfo
	if err := httpPostJSON(ctx, c, "/orders", params, req, &order); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "order placed", "market", req.Market, "side", req.Side, "uuid", order.UUID)
	return c.resolveFill(ctx, order.UUID)
}

// resolveFill polls the order until the exchange reports it done and folds
// the trade list into a single fill.
func (c *Client) resolveFill(ctx context.Context, orderID string) (*exchange.Fill, error) {
	pctx, pcancel := context.WithTimeout(ctx, c.opts.PollOrderTimeout)
	defer pcancel()

	query := make(url.Values)
	query.Set("uuid", orderID)

	for pctx.Err() == nil {
		var order orderInfo
		if err := httpGetJSON(pctx, c, "/order", query, true, &order); err != nil {
			if errors.Is(err, exchange.ErrTransient) {
				ctxutil.Sleep(pctx, c.opts.PollOrderInterval)
				continue
			}
			return nil, err
		}
		// Market orders finish in the "done" or "cancel" state; a canceled
		// ord_type=price order still carries its executed trades.
		if order.State == "wait" || order.ExecutedVolume.IsZero() && order.State != "done" && order.State != "cancel" {
			ctxutil.Sleep(pctx, c.opts.PollOrderInterval)
			continue
		}
		if order.ExecutedVolume.IsZero() {
			return nil, fmt.Errorf("order %s finished with no executed volume: %w", orderID, exchange.ErrTransient)
		}

		funds := decimal.Zero
		for _, t := range order.Trades {
			funds = funds.Add(t.Funds)
		}
		// The trade list can lag the order state; a zero-funds fill would
		// corrupt the recorded fill price, so poll again.
		if funds.IsZero() {
			ctxutil.Sleep(pctx, c.opts.PollOrderInterval)
			continue
		}
		fill := &exchange.Fill{
			Symbol:   order.Market,
			Price:    funds.Div(order.ExecutedVolume),
			Quantity: order.ExecutedVolume,
			Funds:    funds,
			Time:     time.Now().UTC(),
		}
		if at, err := time.Parse(time.RFC3339, order.CreatedAt); err == nil {
			fill.Time = at.UTC()
		}
		return fill, nil
	}
	return nil, fmt.Errorf("timed out resolving fill for order %s: %w", orderID, exchange.ErrTransient)
}

func (c *Client) updateTicker(t *Ticker) {
	c.mu.Lock()
	prev, ok := c.tickers[t.Symbol]
	if !ok || t.Time.After(prev.Time) {
		c.tickers[t.Symbol] = t
	}
	c.mu.Unlock()
}
