package database

// Wallet job queries
const (
	insertJobQuery = `
		INSERT INTO wallet_jobs (type, payload, attempts, max_attempts, next_run_at, created_at)
		VALUES (?, ?, 0, ?, ?, ?)
	`

	selectDueJobsQuery = `
		SELECT id, type, payload, attempts, max_attempts, next_run_at, created_at
		FROM wallet_jobs
		WHERE next_run_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	claimDueJobsQuery = `
		UPDATE wallet_jobs
		SET locked_until = ?
		WHERE id IN (
			SELECT id FROM wallet_jobs
			WHERE next_run_at <= ? AND (locked_until IS NULL OR locked_until <= ?)
			ORDER BY created_at ASC
			LIMIT ?
		)
		RETURNING id, type, payload, attempts, max_attempts, next_run_at, created_at
	`

	markJobFailedQuery = `
		UPDATE wallet_jobs
		SET attempts = ?, next_run_at = ?, locked_until = NULL
		WHERE id = ?
	`

	deleteJobQuery = `
		DELETE FROM wallet_jobs
		WHERE id = ?
	`
)

// Pass record queries
const (
	insertOrReplacePassQuery = `
		INSERT OR REPLACE INTO pass_records (
			id, holder_id, pass_type, pass_data, class_id, object_id,
			serial_number, qr_code_url, pass_url, apple_pass_url,
			device_token, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	selectPassByIDQuery = `
		SELECT id, holder_id, pass_type, pass_data, class_id, object_id,
		       serial_number, qr_code_url, pass_url, apple_pass_url,
		       device_token, status, created_at, updated_at
		FROM pass_records
		WHERE id = ?
	`

	selectPassBySerialQuery = `
		SELECT id, holder_id, pass_type, pass_data, class_id, object_id,
		       serial_number, qr_code_url, pass_url, apple_pass_url,
		       device_token, status, created_at, updated_at
		FROM pass_records
		WHERE serial_number = ?
	`

	updatePassProviderRefsQuery = `
		UPDATE pass_records
		SET class_id = ?, object_id = ?, serial_number = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	updatePassArtifactsQuery = `
		UPDATE pass_records
		SET qr_code_url = ?, pass_url = ?, apple_pass_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	updateApplePassURLQuery = `
		UPDATE pass_records
		SET apple_pass_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	updatePassStatusQuery = `
		UPDATE pass_records
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
)
