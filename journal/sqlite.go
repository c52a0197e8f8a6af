package journal

import (
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fiona-trading/fiona/trade"
)

type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// StoreTrade inserts or updates a live trade record. Close updates rewrite
// the full row, so a trade may be stored once at open and again at exit.
func (j *SQLite) StoreTrade(t trade.ExecutedTrade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	meta, err := encodeMeta(t.Meta)
	if err != nil {
		return err
	}

	_, err = j.db.Exec(`
		INSERT OR REPLACE INTO trades
		(trade_id, session_id, setup_id, epic, direction, size, entry_price, stop_loss, take_profit,
		 deal_id, deal_reference, status, opened_at, closed_at, exit_price, exit_reason, realized_pl, comment, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.SetupID, t.Epic, string(t.Direction), t.Size, t.EntryPrice, t.StopLoss, t.TakeProfit,
		t.DealID, t.DealReference, string(t.Status), t.OpenedAt, t.ClosedAt, t.ExitPrice, string(t.ExitReason), t.RealizedPL, t.Comment, meta,
	)
	return err
}

// StoreShadowTrade inserts or updates a shadow trade record.
func (j *SQLite) StoreShadowTrade(s trade.ShadowTrade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	meta, err := encodeMeta(s.Meta)
	if err != nil {
		return err
	}

	_, err = j.db.Exec(`
		INSERT OR REPLACE INTO shadow_trades
		(trade_id, setup_id, ki_evaluation_id, risk_evaluation_id, epic, direction, size, entry_price, stop_loss, take_profit,
		 status, opened_at, closed_at, exit_price, exit_reason, theoretical_pnl, pnl_percent, skip_reason, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.SetupID, s.KiEvaluationID, s.RiskEvaluationID, s.Epic, string(s.Direction), s.Size, s.EntryPrice, s.StopLoss, s.TakeProfit,
		string(s.Status), s.OpenedAt, s.ClosedAt, s.ExitPrice, string(s.ExitReason), s.TheoreticalPnl, s.PnlPercent, s.SkipReason, meta,
	)
	return err
}

// StoreSnapshot inserts a post-exit market snapshot.
func (j *SQLite) StoreSnapshot(s trade.MarketSnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`
		INSERT INTO snapshots
		(snapshot_id, trade_id, epic, bid, ask, mid, spread, minutes_after_exit, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TradeID, s.Epic, s.Bid, s.Ask, s.Mid, s.Spread, s.MinutesAfterExit, s.Timestamp,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func encodeMeta(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
