package store

// schema is applied statement by statement. The column types are accepted
// by both SQLite and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'active',
		budget      DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS workers (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL DEFAULT '',
		daily_wage DOUBLE PRECISION NOT NULL DEFAULT 0,
		phone      TEXT NOT NULL DEFAULT '',
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		contact_person TEXT NOT NULL DEFAULT '',
		phone          TEXT NOT NULL DEFAULT '',
		address        TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMP NOT NULL,
		updated_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		code       TEXT NOT NULL DEFAULT '',
		status     TEXT NOT NULL DEFAULT 'available',
		project_id TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS worker_attendance (
		id          TEXT PRIMARY KEY,
		worker_id   TEXT NOT NULL,
		project_id  TEXT NOT NULL,
		date        TEXT NOT NULL,
		work_days   DOUBLE PRECISION NOT NULL DEFAULT 1,
		daily_wage  DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_pay   DOUBLE PRECISION NOT NULL DEFAULT 0,
		paid_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_worker ON worker_attendance (worker_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_project_date ON worker_attendance (project_id, date)`,
	`CREATE TABLE IF NOT EXISTS fund_transfers (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL,
		amount      DOUBLE PRECISION NOT NULL,
		sender_name TEXT NOT NULL DEFAULT '',
		date        TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS worker_transfers (
		id             TEXT PRIMARY KEY,
		worker_id      TEXT NOT NULL,
		project_id     TEXT,
		amount         DOUBLE PRECISION NOT NULL,
		recipient_name TEXT NOT NULL DEFAULT '',
		date           TEXT NOT NULL,
		created_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS material_purchases (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL,
		supplier_id   TEXT,
		material_name TEXT NOT NULL,
		quantity      DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_amount  DOUBLE PRECISION NOT NULL DEFAULT 0,
		paid_amount   DOUBLE PRECISION NOT NULL DEFAULT 0,
		date          TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transportation_expenses (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL,
		amount      DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date        TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS worker_misc_expenses (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL,
		worker_id   TEXT,
		amount      DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date        TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ai_chat_sessions (
		id              TEXT PRIMARY KEY,
		owner_id        TEXT NOT NULL,
		title           TEXT NOT NULL DEFAULT '',
		message_count   INTEGER NOT NULL DEFAULT 0,
		last_message_at TIMESTAMP,
		created_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_owner ON ai_chat_sessions (owner_id)`,
	`CREATE TABLE IF NOT EXISTS ai_chat_messages (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		seq         INTEGER NOT NULL DEFAULT 0,
		role        TEXT NOT NULL,
		content     TEXT NOT NULL,
		action      TEXT NOT NULL DEFAULT '',
		payload     TEXT NOT NULL DEFAULT '',
		steps       TEXT NOT NULL DEFAULT '',
		provider    TEXT NOT NULL DEFAULT '',
		model       TEXT NOT NULL DEFAULT '',
		tokens_used INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON ai_chat_messages (session_id, seq)`,
	`CREATE TABLE IF NOT EXISTS ai_usage_stats (
		owner_id TEXT NOT NULL,
		date     TEXT NOT NULL,
		provider TEXT NOT NULL,
		model    TEXT NOT NULL,
		requests INTEGER NOT NULL DEFAULT 0,
		tokens   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (owner_id, date, provider, model)
	)`,
}
