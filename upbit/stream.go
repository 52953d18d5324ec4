// Copyright (c) 2025 BVK Chaitanya

package upbit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pamt/dropbot/ctxutil"
	"github.com/visvasity/topic"
)

// WatchTickers starts a background websocket subscription for ticker updates
// on the given markets. Streamed prices refresh the client's quote cache and
// fan out to TickerUpdates subscribers. The stream reconnects automatically
// until the client is closed.
func (c *Client) WatchTickers(symbols []string) {
	codes := make([]string, len(symbols))
	copy(codes, symbols)
	c.cg.Go(func(ctx context.Context) {
		c.goWatchTickers(ctx, codes)
	})
}

// TickerUpdates returns a receiver for streamed ticker updates. Slow
// receivers only observe the most recent value.
func (c *Client) TickerUpdates() (*topic.Receiver[*Ticker], error) {
	return topic.Subscribe(c.tickerTopic, 1, true /* includeRecent */)
}

func (c *Client) goWatchTickers(ctx context.Context, codes []string) {
	for ctx.Err() == nil {
		if err := c.watchTickers(ctx, codes); err != nil {
			if ctx.Err() == nil {
				slog.WarnContext(ctx, "ticker stream closed (will reconnect)", "error", err)
			}
		}
		ctxutil.Sleep(ctx, c.opts.RetryInterval)
	}
}

func (c *Client) watchTickers(ctx context.Context, codes []string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, WebsocketURL.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Closing the connection unblocks the reader when the context expires.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	sub := []interface{}{
		map[string]string{"ticket": uuid.New().String()},
		map[string]interface{}{"type": "ticker", "codes": codes},
		map[string]string{"format": "DEFAULT"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	c.cg.Go(func(ctx context.Context) {
		for ctxutil.Sleep(ctx, c.opts.WebsocketPingInterval); ctx.Err() == nil; ctxutil.Sleep(ctx, c.opts.WebsocketPingInterval) {
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var st streamTicker
		if err := json.Unmarshal(data, &st); err != nil {
			slog.WarnContext(ctx, "could not unmarshal ticker frame (ignored)", "error", err)
			continue
		}
		if st.Type != "ticker" || len(st.Code) == 0 {
			continue
		}
		t := &Ticker{
			Symbol: st.Code,
			Price:  st.TradePrice,
			Time:   time.UnixMilli(st.Timestamp).UTC(),
		}
		c.updateTicker(t)
		c.tickerTopic.Send(t)
	}
}
