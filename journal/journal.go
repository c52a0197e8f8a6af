// journal/journal.go
package journal

import (
	"github.com/fiona-trading/fiona/trade"
)

// Journal persists trade outcomes for later review. Implementations must be
// safe to call from the execution service and the shadow poller concurrently.
type Journal interface {
	StoreTrade(trade.ExecutedTrade) error
	StoreShadowTrade(trade.ShadowTrade) error
	StoreSnapshot(trade.MarketSnapshot) error
	Close() error
}
