// Copyright (c) 2025 BVK Chaitanya

package upbit

import (
	"net/url"
	"time"
)

var (
	RestURL = url.URL{
		Scheme: "https",
		Host:   "api.upbit.com",
		Path:   "/v1",
	}

	WebsocketURL = url.URL{
		Scheme: "wss",
		Host:   "api.upbit.com",
		Path:   "/websocket/v1",
	}
)

type Options struct {
	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration

	// RetryInterval is the wait before the single retry of a failed REST
	// call. Calls that fail twice surface as transient errors to the caller.
	RetryInterval time.Duration

	// PollOrderInterval is the wait between order status polls while
	// resolving the fill of a placed market order.
	PollOrderInterval time.Duration

	// PollOrderTimeout bounds the total fill resolution time.
	PollOrderTimeout time.Duration

	// WebsocketPingInterval holds the ping interval for the ticker stream.
	WebsocketPingInterval time.Duration

	// TickerFreshness is the maximum age of a streamed price before GetPrice
	// falls back to the REST quote api.
	TickerFreshness time.Duration

	// RestRate is the sustained REST requests-per-second budget. Upbit
	// enforces per-second quotas per api group.
	RestRate float64
}

func (v *Options) setDefaults() {
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 5 * time.Second
	}
	if v.RetryInterval == 0 {
		v.RetryInterval = time.Second
	}
	if v.PollOrderInterval == 0 {
		v.PollOrderInterval = 500 * time.Millisecond
	}
	if v.PollOrderTimeout == 0 {
		v.PollOrderTimeout = 30 * time.Second
	}
	if v.WebsocketPingInterval == 0 {
		v.WebsocketPingInterval = 30 * time.Second
	}
	if v.TickerFreshness == 0 {
		v.TickerFreshness = 10 * time.Second
	}
	if v.RestRate == 0 {
		v.RestRate = 8
	}
}

// Check validates the options.
func (v *Options) Check() error {
	return nil
}
