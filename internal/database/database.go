package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"walletbridge/internal/migrations"
	"walletbridge/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database owns the wallet job queue and the pass record table. Both live
// in the same SQLite file; the job store is the only shared mutable state
// in the system.
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(migrations.GetInitialSchema()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Job store operations

// EnqueueJob inserts a new job with zero attempts, due immediately.
func (d *Database) EnqueueJob(ctx context.Context, jobType models.JobType, payload interface{}, maxAttempts int) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	now := time.Now().UTC()
	var result sql.Result
	err = retryableDBOperation(ctx, func() error {
		var execErr error
		result, execErr = d.db.ExecContext(ctx, insertJobQuery, string(jobType), string(raw), maxAttempts, now, now)
		return execErr
	}, "enqueue job")
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get job id: %w", err)
	}
	return id, nil
}

// FetchDueJobs returns jobs whose next_run_at has passed, oldest first.
// No leasing: concurrent callers may observe the same rows, so handlers
// must tolerate duplicate execution.
func (d *Database) FetchDueJobs(ctx context.Context, limit int) ([]models.WalletJob, error) {
	rows, err := d.db.QueryContext(ctx, selectDueJobsQuery, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ClaimDueJobs atomically stamps a lease on due, unlocked rows and returns
// them. A single conditional UPDATE both selects and marks ownership, so
// two dispatchers racing on the same rows cannot both claim them before the
// lease expires. Delivery stays at-least-once: a crashed holder's lease
// simply times out.
func (d *Database) ClaimDueJobs(ctx context.Context, limit int, lease time.Duration) ([]models.WalletJob, error) {
	now := time.Now().UTC()
	rows, err := d.db.QueryContext(ctx, claimDueJobsQuery, now.Add(lease), now, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// MarkJobFailed records a failed attempt and reschedules the job.
func (d *Database) MarkJobFailed(ctx context.Context, id int64, attempts int, backoff time.Duration) error {
	nextRunAt := time.Now().UTC().Add(backoff)
	err := retryableDBOperation(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, markJobFailedQuery, attempts, nextRunAt, id)
		return execErr
	}, "mark job failed")
	if err != nil {
		return fmt.Errorf("failed to mark job %d failed: %w", id, err)
	}
	return nil
}

// MarkJobDone deletes the job row. Used for success and for permanent
// give-up alike; there is no dead-letter table.
func (d *Database) MarkJobDone(ctx context.Context, id int64) error {
	err := retryableDBOperation(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, deleteJobQuery, id)
		return execErr
	}, "mark job done")
	if err != nil {
		return fmt.Errorf("failed to mark job %d done: %w", id, err)
	}
	return nil
}

func scanJobs(rows *sql.Rows) ([]models.WalletJob, error) {
	var jobs []models.WalletJob
	for rows.Next() {
		var job models.WalletJob
		var jobType, payload string
		if err := rows.Scan(&job.ID, &jobType, &payload, &job.Attempts, &job.MaxAttempts, &job.NextRunAt, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		job.Type = models.JobType(jobType)
		job.Payload = json.RawMessage(payload)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// Pass record operations

// SavePassRecord saves or replaces a pass record.
func (d *Database) SavePassRecord(ctx context.Context, record *models.PassRecord) error {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal pass data: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = d.db.ExecContext(ctx, insertOrReplacePassQuery,
		record.ID, record.HolderID, string(record.PassType), string(data),
		record.ClassID, record.ObjectID, record.SerialNumber,
		record.QRCodeURL, record.PassURL, record.ApplePassURL,
		record.DeviceToken, string(record.Status), createdAt)
	if err != nil {
		return fmt.Errorf("failed to save pass record: %w", err)
	}
	return nil
}

// GetPassRecord retrieves a pass record by id. Returns (nil, nil) when the
// record does not exist.
func (d *Database) GetPassRecord(ctx context.Context, id string) (*models.PassRecord, error) {
	return d.scanPassRow(d.db.QueryRowContext(ctx, selectPassByIDQuery, id))
}

// GetPassRecordBySerial retrieves a pass record by bundle serial number.
func (d *Database) GetPassRecordBySerial(ctx context.Context, serial string) (*models.PassRecord, error) {
	return d.scanPassRow(d.db.QueryRowContext(ctx, selectPassBySerialQuery, serial))
}

func (d *Database) scanPassRow(row *sql.Row) (*models.PassRecord, error) {
	record := &models.PassRecord{}
	var passType, passData, status string

	err := row.Scan(&record.ID, &record.HolderID, &passType, &passData,
		&record.ClassID, &record.ObjectID, &record.SerialNumber,
		&record.QRCodeURL, &record.PassURL, &record.ApplePassURL,
		&record.DeviceToken, &status, &record.CreatedAt, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pass record: %w", err)
	}

	record.PassType = models.PassType(passType)
	record.Status = models.PassStatus(status)
	if err := json.Unmarshal([]byte(passData), &record.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pass data: %w", err)
	}
	return record, nil
}

// UpdatePassProviderRefs records the Google Wallet class/object ids and the
// Apple pass serial number after issuance.
func (d *Database) UpdatePassProviderRefs(ctx context.Context, id, classID, objectID, serial string) error {
	return d.execForPass(ctx, updatePassProviderRefsQuery, "update provider refs", id, classID, objectID, serial, id)
}

// UpdatePassArtifacts records the public artifact URLs for a pass.
func (d *Database) UpdatePassArtifacts(ctx context.Context, id, qrCodeURL, passURL, applePassURL string) error {
	return d.execForPass(ctx, updatePassArtifactsQuery, "update artifacts", id, qrCodeURL, passURL, applePassURL, id)
}

// UpdateApplePassURL records the uploaded bundle's public URL.
func (d *Database) UpdateApplePassURL(ctx context.Context, id, applePassURL string) error {
	return d.execForPass(ctx, updateApplePassURLQuery, "update apple pass url", id, applePassURL, id)
}

// UpdatePassStatus transitions the record's lifecycle status.
func (d *Database) UpdatePassStatus(ctx context.Context, id string, status models.PassStatus) error {
	return d.execForPass(ctx, updatePassStatusQuery, "update status", id, string(status), id)
}

func (d *Database) execForPass(ctx context.Context, query, operation, id string, args ...interface{}) error {
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", operation, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no pass record found with id: %s", id)
	}
	return nil
}
