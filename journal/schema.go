package journal

// Money columns are TEXT so decimals round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	id TEXT PRIMARY KEY,
	account TEXT NOT NULL,
	side TEXT NOT NULL,
	ticker TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price TEXT NOT NULL,
	realized_pl TEXT NOT NULL,
	cash_after TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_ticker ON fills(ticker);
CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(time);
`
