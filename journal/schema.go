// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	setup_id TEXT NOT NULL,
	epic TEXT NOT NULL,
	direction TEXT NOT NULL,
	size REAL NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL,
	take_profit REAL,
	deal_id TEXT NOT NULL,
	deal_reference TEXT NOT NULL,
	status TEXT NOT NULL,
	opened_at DATETIME NOT NULL,
	closed_at DATETIME,
	exit_price REAL,
	exit_reason TEXT,
	realized_pl REAL,
	comment TEXT NOT NULL,
	meta TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS shadow_trades (
	trade_id TEXT PRIMARY KEY,
	setup_id TEXT NOT NULL,
	ki_evaluation_id TEXT NOT NULL,
	risk_evaluation_id TEXT NOT NULL,
	epic TEXT NOT NULL,
	direction TEXT NOT NULL,
	size REAL NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL,
	take_profit REAL,
	status TEXT NOT NULL,
	opened_at DATETIME NOT NULL,
	closed_at DATETIME,
	exit_price REAL,
	exit_reason TEXT,
	theoretical_pnl REAL,
	pnl_percent REAL,
	skip_reason TEXT NOT NULL,
	meta TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id TEXT PRIMARY KEY,
	trade_id TEXT NOT NULL,
	epic TEXT NOT NULL,
	bid REAL NOT NULL,
	ask REAL NOT NULL,
	mid REAL NOT NULL,
	spread REAL NOT NULL,
	minutes_after_exit REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shadow_status ON shadow_trades(status);
CREATE INDEX IF NOT EXISTS idx_shadow_closed ON shadow_trades(closed_at);
CREATE INDEX IF NOT EXISTS idx_snapshots_trade ON snapshots(trade_id);
`
