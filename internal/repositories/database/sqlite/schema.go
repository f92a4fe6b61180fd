package sqlite

import (
	"context"
	"database/sql"
)

// schema creates the ledger tables. Amounts are stored as decimal TEXT and
// instants as INTEGER unix microseconds in UTC.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id      TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    name            TEXT NOT NULL,
    account_type    TEXT NOT NULL CHECK (account_type IN ('cash', 'bank', 'e-wallet', 'credit-card')),
    currency_code   TEXT NOT NULL,
    color           TEXT NOT NULL DEFAULT '',
    icon            TEXT NOT NULL DEFAULT '',
    opening_balance TEXT NOT NULL,
    balance         TEXT NOT NULL,
    version         INTEGER NOT NULL,
    created_at      INTEGER NOT NULL,
    created_by      TEXT NOT NULL,
    last_updated_at INTEGER NOT NULL,
    last_updated_by TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS balance_adjustments (
    adjustment_id    TEXT PRIMARY KEY,
    account_id       TEXT NOT NULL,
    previous_balance TEXT NOT NULL,
    new_balance      TEXT NOT NULL,
    delta            TEXT NOT NULL,
    reason           TEXT NOT NULL DEFAULT '',
    created_at       INTEGER NOT NULL,
    created_by       TEXT NOT NULL,
    last_updated_at  INTEGER NOT NULL,
    last_updated_by  TEXT NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(account_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS split_bills (
    split_bill_id    TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    title            TEXT NOT NULL,
    total_amount     TEXT NOT NULL,
    currency_code    TEXT NOT NULL,
    payer_account_id TEXT,
    created_at       INTEGER NOT NULL,
    created_by       TEXT NOT NULL,
    last_updated_at  INTEGER NOT NULL,
    last_updated_by  TEXT NOT NULL,
    FOREIGN KEY (payer_account_id) REFERENCES accounts(account_id)
);

CREATE TABLE IF NOT EXISTS transactions (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    transaction_id  TEXT NOT NULL UNIQUE,
    user_id         TEXT NOT NULL,
    account_id      TEXT NOT NULL,
    direction       TEXT NOT NULL CHECK (direction IN ('income', 'expense')),
    amount          TEXT NOT NULL,
    category        TEXT NOT NULL DEFAULT '',
    note            TEXT NOT NULL DEFAULT '',
    occurred_at     INTEGER NOT NULL,
    transfer_id     TEXT,
    split_bill_id   TEXT,
    created_at      INTEGER NOT NULL,
    created_by      TEXT NOT NULL,
    last_updated_at INTEGER NOT NULL,
    last_updated_by TEXT NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(account_id),
    FOREIGN KEY (split_bill_id) REFERENCES split_bills(split_bill_id)
);

CREATE TABLE IF NOT EXISTS split_bill_participants (
    participant_id         TEXT PRIMARY KEY,
    split_bill_id          TEXT NOT NULL,
    position               INTEGER NOT NULL,
    name                   TEXT NOT NULL,
    amount                 TEXT NOT NULL,
    is_paid                INTEGER NOT NULL DEFAULT 0,
    paid_at                INTEGER,
    payment_transaction_id TEXT,
    UNIQUE (split_bill_id, position),
    FOREIGN KEY (split_bill_id) REFERENCES split_bills(split_bill_id) ON DELETE CASCADE,
    FOREIGN KEY (payment_transaction_id) REFERENCES transactions(transaction_id)
);

CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_balance_adjustments_account ON balance_adjustments(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_split_bills_user ON split_bills(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transactions_user_listing ON transactions(user_id, occurred_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_account_listing ON transactions(account_id, occurred_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_transfer ON transactions(transfer_id);
CREATE INDEX IF NOT EXISTS idx_participants_bill ON split_bill_participants(split_bill_id, position);
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
