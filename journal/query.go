package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fiona-trading/fiona/trade"
)

const shadowColumns = `trade_id, setup_id, ki_evaluation_id, risk_evaluation_id, epic, direction, size,
	entry_price, stop_loss, take_profit, status, opened_at, closed_at, exit_price, exit_reason,
	theoretical_pnl, pnl_percent, skip_reason, meta`

// GetShadowTrade returns a single shadow trade by ID.
func (j *SQLite) GetShadowTrade(tradeID string) (trade.ShadowTrade, error) {
	row := j.db.QueryRow(`
		SELECT `+shadowColumns+`
		FROM shadow_trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanShadow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return trade.ShadowTrade{}, fmt.Errorf("shadow trade %q not found", tradeID)
		}
		return trade.ShadowTrade{}, err
	}
	return rec, nil
}

// ListOpenShadowTrades returns all shadow trades still marked open.
func (j *SQLite) ListOpenShadowTrades() ([]trade.ShadowTrade, error) {
	rows, err := j.db.Query(`
		SELECT `+shadowColumns+`
		FROM shadow_trades
		WHERE status = ?
		ORDER BY opened_at ASC`, string(trade.StatusOpen))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trade.ShadowTrade
	for rows.Next() {
		rec, err := scanShadow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListShadowTradesClosedBetween returns shadow trades whose closed_at is
// within [start, end).
func (j *SQLite) ListShadowTradesClosedBetween(start, end time.Time) ([]trade.ShadowTrade, error) {
	rows, err := j.db.Query(`
		SELECT `+shadowColumns+`
		FROM shadow_trades
		WHERE closed_at >= ? AND closed_at < ?
		ORDER BY closed_at ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trade.ShadowTrade
	for rows.Next() {
		rec, err := scanShadow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSnapshots returns all snapshots captured for one trade, oldest first.
func (j *SQLite) ListSnapshots(tradeID string) ([]trade.MarketSnapshot, error) {
	rows, err := j.db.Query(`
		SELECT snapshot_id, trade_id, epic, bid, ask, mid, spread, minutes_after_exit, time
		FROM snapshots
		WHERE trade_id = ?
		ORDER BY time ASC`, tradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trade.MarketSnapshot
	for rows.Next() {
		var rec trade.MarketSnapshot
		if err := rows.Scan(
			&rec.ID,
			&rec.TradeID,
			&rec.Epic,
			&rec.Bid,
			&rec.Ask,
			&rec.Mid,
			&rec.Spread,
			&rec.MinutesAfterExit,
			&rec.Timestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShadow(row scanner) (trade.ShadowTrade, error) {
	var (
		rec        trade.ShadowTrade
		direction  string
		status     string
		stopLoss   sql.NullFloat64
		takeProfit sql.NullFloat64
		closedAt   sql.NullTime
		exitPrice  sql.NullFloat64
		exitReason sql.NullString
		pnl        sql.NullFloat64
		pnlPercent sql.NullFloat64
		meta       string
	)

	err := row.Scan(
		&rec.ID,
		&rec.SetupID,
		&rec.KiEvaluationID,
		&rec.RiskEvaluationID,
		&rec.Epic,
		&direction,
		&rec.Size,
		&rec.EntryPrice,
		&stopLoss,
		&takeProfit,
		&status,
		&rec.OpenedAt,
		&closedAt,
		&exitPrice,
		&exitReason,
		&pnl,
		&pnlPercent,
		&rec.SkipReason,
		&meta,
	)
	if err != nil {
		return trade.ShadowTrade{}, err
	}

	rec.Direction = trade.Direction(direction)
	rec.Status = trade.Status(status)
	if stopLoss.Valid {
		rec.StopLoss = &stopLoss.Float64
	}
	if takeProfit.Valid {
		rec.TakeProfit = &takeProfit.Float64
	}
	if closedAt.Valid {
		t := closedAt.Time
		rec.ClosedAt = &t
	}
	if exitPrice.Valid {
		rec.ExitPrice = &exitPrice.Float64
	}
	if exitReason.Valid {
		rec.ExitReason = trade.ExitReason(exitReason.String)
	}
	if pnl.Valid {
		rec.TheoreticalPnl = &pnl.Float64
	}
	if pnlPercent.Valid {
		rec.PnlPercent = &pnlPercent.Float64
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &rec.Meta); err != nil {
			return trade.ShadowTrade{}, err
		}
	}
	return rec, nil
}
