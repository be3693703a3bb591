package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id TEXT PRIMARY KEY,
	paid_credits INTEGER NOT NULL DEFAULT 0 CHECK (paid_credits >= 0),
	paid_credits_purchased INTEGER NOT NULL DEFAULT 0,
	paid_credits_used INTEGER NOT NULL DEFAULT 0,
	free_credits_used INTEGER NOT NULL DEFAULT 0,
	last_free_date TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS free_pool (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	used_free_count INTEGER NOT NULL CHECK (used_free_count >= 0),
	pool_limit INTEGER NOT NULL CHECK (pool_limit >= 0),
	version INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	CHECK (used_free_count <= pool_limit)
);

CREATE TABLE IF NOT EXISTS payments (
	transaction_id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	amount_received INTEGER NOT NULL,
	currency TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS payments_device_idx ON payments(device_id);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	created_at TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS sessions_expires_idx ON sessions(expires_at);
`
