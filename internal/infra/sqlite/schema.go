package sqlite

import "context"

func (s *Store) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		email_key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		monthly_income TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		merchant TEXT NOT NULL,
		category TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		account_id TEXT NOT NULL DEFAULT '',
		is_fraudulent INTEGER NOT NULL DEFAULT 0,
		fraud_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);

	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		limit_amount TEXT NOT NULL,
		period TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_budgets_user ON budgets(user_id);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		current_amount TEXT NOT NULL,
		deadline TEXT,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);

	CREATE TABLE IF NOT EXISTS financial_health (
		user_id TEXT PRIMARY KEY,
		income_stability INTEGER NOT NULL,
		expense_ratio INTEGER NOT NULL,
		savings_rate INTEGER NOT NULL,
		debt_ratio INTEGER NOT NULL,
		liquidity INTEGER NOT NULL,
		score INTEGER NOT NULL,
		last_calculated TEXT NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}
