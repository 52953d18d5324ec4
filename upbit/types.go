// Copyright (c) 2025 BVK Chaitanya

package upbit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wire types for the Upbit Open API v1.

type tickerInfo struct {
	Market     string          `json:"market"`
	TradePrice decimal.Decimal `json:"trade_price"`
	Timestamp  int64           `json:"timestamp"`
}

type accountInfo struct {
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	Locked       decimal.Decimal `json:"locked"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	UnitCurrency string          `json:"unit_currency"`
}

type orderRequest struct {
	Market     string `json:"market"`
	Side       string `json:"side"`
	Volume     string `json:"volume,omitempty"`
	Price      string `json:"price,omitempty"`
	OrdType    string `json:"ord_type"`
	Identifier string `json:"identifier,omitempty"`
}

type orderInfo struct {
	UUID           string          `json:"uuid"`
	Market         string          `json:"market"`
	Side           string          `json:"side"`
	OrdType        string          `json:"ord_type"`
	State          string          `json:"state"`
	CreatedAt      string          `json:"created_at"`
	ExecutedVolume decimal.Decimal `json:"executed_volume"`
	PaidFee        decimal.Decimal `json:"paid_fee"`
	Trades         []orderTrade    `json:"trades"`
}

type orderTrade struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
	Funds  decimal.Decimal `json:"funds"`
}

type apiError struct {
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// streamTicker is the websocket ticker frame.
type streamTicker struct {
	Type       string          `json:"type"`
	Code       string          `json:"code"`
	TradePrice decimal.Decimal `json:"trade_price"`
	Timestamp  int64           `json:"timestamp"`
}

// Ticker is a streamed price update.
type Ticker struct {
	Symbol string
	Price  decimal.Decimal
	Time   time.Time
}
