package store

// Schema statements are applied in order and are safe to re-run.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id         BIGSERIAL PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		hash       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		cash       NUMERIC(14, 2) NOT NULL DEFAULT 10000.00 CHECK (cash >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		account_id BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
		symbol     TEXT NOT NULL,
		quantity   BIGINT NOT NULL CHECK (quantity > 0),
		total_cost NUMERIC(14, 2) NOT NULL,
		PRIMARY KEY (account_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id         BIGSERIAL PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
		action     TEXT NOT NULL CHECK (action IN ('BUY', 'SELL')),
		symbol     TEXT NOT NULL,
		quantity   BIGINT NOT NULL CHECK (quantity > 0),
		cost       NUMERIC(14, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_id_idx ON transactions (account_id, id)`,
}

// SQLite keeps money as TEXT so decimal values round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		username   TEXT NOT NULL UNIQUE,
		hash       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		cash       TEXT NOT NULL DEFAULT '10000.00',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		account_id INTEGER NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
		symbol     TEXT NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		total_cost TEXT NOT NULL,
		PRIMARY KEY (account_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
		action     TEXT NOT NULL CHECK (action IN ('BUY', 'SELL')),
		symbol     TEXT NOT NULL,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		cost       TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_id_idx ON transactions (account_id, id)`,
}
