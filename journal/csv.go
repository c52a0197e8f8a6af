// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/fiona-trading/fiona/trade"
)

// CSV is an append-only journal for offline review. Close updates append a
// second row for the same trade; the last row wins.
type CSV struct {
	trades  *csv.Writer
	shadows *csv.Writer
	tf, sf  *os.File
}

func NewCSV(tradesPath, shadowsPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	sf, err := os.Create(shadowsPath)
	if err != nil {
		return nil, err
	}

	tw := csv.NewWriter(tf)
	sw := csv.NewWriter(sf)

	if err := tw.Write([]string{"trade_id", "session_id", "setup_id", "epic", "direction", "size", "entry_price", "stop_loss", "take_profit", "deal_id", "status", "opened_at", "closed_at", "exit_price", "exit_reason", "realized_pl", "comment"}); err != nil {
		return nil, err
	}
	if err := sw.Write([]string{"trade_id", "setup_id", "epic", "direction", "size", "entry_price", "stop_loss", "take_profit", "status", "opened_at", "closed_at", "exit_price", "exit_reason", "theoretical_pnl", "pnl_percent", "skip_reason"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	sw.Flush()
	if err := sw.Error(); err != nil {
		return nil, err
	}

	return &CSV{tw, sw, tf, sf}, nil
}

func (j *CSV) StoreTrade(t trade.ExecutedTrade) error {
	err := j.trades.Write([]string{
		t.ID,
		t.SessionID,
		t.SetupID,
		t.Epic,
		string(t.Direction),
		f(t.Size),
		f(t.EntryPrice),
		fp(t.StopLoss),
		fp(t.TakeProfit),
		t.DealID,
		string(t.Status),
		t.OpenedAt.Format(time.RFC3339),
		tp(t.ClosedAt),
		fp(t.ExitPrice),
		string(t.ExitReason),
		fp(t.RealizedPL),
		t.Comment,
	})
	if err != nil {
		return err
	}

	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) StoreShadowTrade(s trade.ShadowTrade) error {
	err := j.shadows.Write([]string{
		s.ID,
		s.SetupID,
		s.Epic,
		string(s.Direction),
		f(s.Size),
		f(s.EntryPrice),
		fp(s.StopLoss),
		fp(s.TakeProfit),
		string(s.Status),
		s.OpenedAt.Format(time.RFC3339),
		tp(s.ClosedAt),
		fp(s.ExitPrice),
		string(s.ExitReason),
		fp(s.TheoreticalPnl),
		fp(s.PnlPercent),
		s.SkipReason,
	})
	if err != nil {
		return err
	}

	j.shadows.Flush()
	return j.shadows.Error()
}

// StoreSnapshot is a no-op for the CSV journal; snapshots only matter for
// queries, which the CSV backend does not support.
func (j *CSV) StoreSnapshot(trade.MarketSnapshot) error {
	return nil
}

func (j *CSV) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.shadows.Flush()
	if err := j.shadows.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	if err := j.sf.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func fp(x *float64) string {
	if x == nil {
		return ""
	}
	return f(*x)
}

func tp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
