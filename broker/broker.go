package broker

import "context"

// Broker is what the execution layer needs from a broker adapter.
type Broker interface {
	GetAccount(ctx context.Context) (AccountState, error)
	GetOpenPositions(ctx context.Context) ([]Position, error)
	GetSymbolPrice(ctx context.Context, epic string) (SymbolPrice, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	ClosePosition(ctx context.Context, positionID string) (OrderResult, error)
}

// PriceSource is the read-only slice of Broker the shadow trader needs.
type PriceSource interface {
	GetSymbolPrice(ctx context.Context, epic string) (SymbolPrice, error)
}
