package execution

import (
	"context"
	"sync"
	"time"

	"github.com/fiona-trading/fiona/broker"
	"github.com/fiona-trading/fiona/trade"
)

// fakeBroker is a scriptable in-memory broker.
type fakeBroker struct {
	mu sync.Mutex

	placeResult broker.OrderResult
	placeErr    error
	placeCalls  int
	lastOrder   broker.OrderRequest

	price    broker.SymbolPrice
	priceErr error

	// blockPlace, when non-nil, makes PlaceOrder wait until the channel
	// is closed. Used to hold a broker call in flight.
	blockPlace chan struct{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		placeResult: broker.OrderResult{
			Success:       true,
			DealID:        "DEAL-1",
			DealReference: "REF-1",
			Status:        broker.StatusOpen,
		},
		price: broker.SymbolPrice{
			Epic: "CC.D.CL.UNC.IP",
			Bid:  75.48,
			Ask:  75.52,
		},
	}
}

func (f *fakeBroker) PlaceOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	f.mu.Lock()
	f.placeCalls++
	f.lastOrder = req
	block := f.blockPlace
	result, err := f.placeResult, f.placeErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return result, err
}

func (f *fakeBroker) GetSymbolPrice(context.Context, string) (broker.SymbolPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, f.priceErr
}

func (f *fakeBroker) GetAccount(context.Context) (broker.AccountState, error) {
	return broker.AccountState{Equity: 10000}, nil
}

func (f *fakeBroker) GetOpenPositions(context.Context) ([]broker.Position, error) {
	return nil, nil
}

func (f *fakeBroker) ClosePosition(context.Context, string) (broker.OrderResult, error) {
	return broker.OrderResult{Success: true, Status: broker.StatusClosed}, nil
}

func (f *fakeBroker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placeCalls
}

func (f *fakeBroker) setPrice(bid, ask float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price.Bid, f.price.Ask = bid, ask
}

// memJournal collects records in memory.
type memJournal struct {
	mu sync.Mutex

	trades  []trade.ExecutedTrade
	shadows []trade.ShadowTrade
	snaps   []trade.MarketSnapshot

	shadowErr error
}

func (m *memJournal) StoreTrade(t trade.ExecutedTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

func (m *memJournal) StoreShadowTrade(s trade.ShadowTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shadowErr != nil {
		return m.shadowErr
	}
	m.shadows = append(m.shadows, s)
	return nil
}

func (m *memJournal) StoreSnapshot(s trade.MarketSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, s)
	return nil
}

func (m *memJournal) Close() error { return nil }

func (m *memJournal) shadowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shadows)
}

func (m *memJournal) tradeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trades)
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
