package migrations

// Schema is embedded rather than read from disk so the worker binary can
// run from any working directory.
const initialSchema = `
CREATE TABLE IF NOT EXISTS wallet_jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL DEFAULT 5,
	next_run_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	locked_until TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_wallet_jobs_due
	ON wallet_jobs (next_run_at, created_at);

CREATE TABLE IF NOT EXISTS pass_records (
	id TEXT PRIMARY KEY,
	holder_id TEXT NOT NULL,
	pass_type TEXT NOT NULL,
	pass_data TEXT NOT NULL,
	class_id TEXT NOT NULL DEFAULT '',
	object_id TEXT NOT NULL DEFAULT '',
	serial_number TEXT NOT NULL DEFAULT '',
	qr_code_url TEXT NOT NULL DEFAULT '',
	pass_url TEXT NOT NULL DEFAULT '',
	apple_pass_url TEXT NOT NULL DEFAULT '',
	device_token TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pass_records_serial
	ON pass_records (serial_number);
`

// GetInitialSchema returns the initial database schema
func GetInitialSchema() string {
	return initialSchema
}
