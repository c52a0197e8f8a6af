package broker

import "time"

// Direction of an order as the broker sees it.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// OrderType selects how an order is executed.
type OrderType string

const (
	Market    OrderType = "MARKET"
	Limit     OrderType = "LIMIT"
	Stop      OrderType = "STOP"
	BuyLimit  OrderType = "BUY_LIMIT"
	SellLimit OrderType = "SELL_LIMIT"
	BuyStop   OrderType = "BUY_STOP"
	SellStop  OrderType = "SELL_STOP"
)

// OrderStatus as reported by the broker.
type OrderStatus string

const (
	StatusOpen            OrderStatus = "OPEN"
	StatusClosed          OrderStatus = "CLOSED"
	StatusPending         OrderStatus = "PENDING"
	StatusRejected        OrderStatus = "REJECTED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
)

// OrderRequest is an immutable order proposal. The risk engine never mutates
// one in place; WithSize returns an adjusted copy.
type OrderRequest struct {
	Epic      string
	Direction Direction
	Size      float64
	Type      OrderType

	LimitPrice *float64
	StopPrice  *float64

	StopLoss   *float64
	TakeProfit *float64

	GuaranteedStop       bool
	TrailingStop         bool
	TrailingStopDistance *float64

	Currency string
}

// WithSize returns a copy of the request with the size replaced and all
// other fields unchanged.
func (r OrderRequest) WithSize(size float64) OrderRequest {
	r.Size = size
	return r
}

// OrderResult is the broker's answer to a placed order or a position close.
type OrderResult struct {
	Success       bool
	DealID        string
	DealReference string
	Status        OrderStatus
	Reason        string
	AffectedDeals []string
	Timestamp     time.Time
}

// SymbolPrice is a point-in-time price for one market.
type SymbolPrice struct {
	Epic       string
	MarketName string

	Bid    float64
	Ask    float64
	Spread float64

	High          *float64
	Low           *float64
	Change        *float64
	ChangePercent *float64

	Timestamp time.Time
}

// Mid returns the price halfway between bid and ask.
func (p SymbolPrice) Mid() float64 {
	return (p.Bid + p.Ask) / 2
}

// AccountState is a caller-owned snapshot of the trading account.
type AccountState struct {
	ID   string
	Name string

	Balance         float64
	Available       float64
	Equity          float64
	MarginUsed      float64
	MarginAvailable float64
	UnrealizedPL    float64
	RealizedPL      float64

	Currency  string
	Timestamp time.Time
}

// Position is one open position at the broker.
type Position struct {
	ID         string
	DealID     string
	Epic       string
	MarketName string

	Direction    Direction
	Size         float64
	OpenPrice    float64
	CurrentPrice float64
	UnrealizedPL float64

	StopLoss   *float64
	TakeProfit *float64

	Currency  string
	CreatedAt time.Time
}
