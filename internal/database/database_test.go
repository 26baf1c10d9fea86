package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"walletbridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDatabase(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "walletbridge-test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestEnqueueAndFetchDueJobs(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	payload := models.GooglePatchPayload{ObjectID: "3388.loyalty-abc", Balance: "150"}
	id, err := db.EnqueueJob(ctx, models.JobTypeGooglePatch, payload, 5)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	jobs, err := db.FetchDueJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.Equal(t, models.JobTypeGooglePatch, jobs[0].Type)
	assert.Equal(t, 0, jobs[0].Attempts)
	assert.Equal(t, 5, jobs[0].MaxAttempts)

	decoded, err := models.DecodeJobPayload(&jobs[0])
	require.NoError(t, err)
	require.NotNil(t, decoded.GooglePatch)
	assert.Equal(t, "3388.loyalty-abc", decoded.GooglePatch.ObjectID)
}

func TestFetchDueJobs_OrderAndLimit(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := db.EnqueueJob(ctx, models.JobTypeApplePush, models.ApplePushPayload{
			SerialNumber: fmt.Sprintf("PASS-%d", i),
			DeviceToken:  "token",
		}, 5)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	jobs, err := db.FetchDueJobs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	// Oldest first, batch capped at the limit.
	assert.Equal(t, ids[0], jobs[0].ID)
	assert.Equal(t, ids[1], jobs[1].ID)
	assert.Equal(t, ids[2], jobs[2].ID)
}

func TestFetchDueJobs_SkipsFutureJobs(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	id, err := db.EnqueueJob(ctx, models.JobTypeApplePush, models.ApplePushPayload{
		SerialNumber: "PASS-1",
		DeviceToken:  "token",
	}, 5)
	require.NoError(t, err)

	require.NoError(t, db.MarkJobFailed(ctx, id, 1, 2*time.Minute))

	jobs, err := db.FetchDueJobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs, "rescheduled job must stay invisible until its backoff elapses")
}

func TestMarkJobFailed_UpdatesAttemptsAndSchedule(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	id, err := db.EnqueueJob(ctx, models.JobTypeApplePush, models.ApplePushPayload{
		SerialNumber: "PASS-1",
		DeviceToken:  "token",
	}, 5)
	require.NoError(t, err)

	before := time.Now().UTC()
	require.NoError(t, db.MarkJobFailed(ctx, id, 3, 480*time.Second))

	var attempts int
	var nextRunAt time.Time
	err = db.db.QueryRow("SELECT attempts, next_run_at FROM wallet_jobs WHERE id = ?", id).Scan(&attempts, &nextRunAt)
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.WithinDuration(t, before.Add(480*time.Second), nextRunAt, 5*time.Second)
}

func TestMarkJobDone_DeletesRow(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	id, err := db.EnqueueJob(ctx, models.JobTypeApplePush, models.ApplePushPayload{
		SerialNumber: "PASS-1",
		DeviceToken:  "token",
	}, 5)
	require.NoError(t, err)

	require.NoError(t, db.MarkJobDone(ctx, id))

	jobs, err := db.FetchDueJobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// Deleting an already-deleted row is not an error.
	assert.NoError(t, db.MarkJobDone(ctx, id))
}

func TestClaimDueJobs_LeasesRows(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	_, err := db.EnqueueJob(ctx, models.JobTypeApplePush, models.ApplePushPayload{
		SerialNumber: "PASS-1",
		DeviceToken:  "token",
	}, 5)
	require.NoError(t, err)

	claimed, err := db.ClaimDueJobs(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// A second claim within the lease window sees nothing.
	again, err := db.ClaimDueJobs(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestClaimDueJobs_ExpiredLeaseIsReclaimable(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	id, err := db.EnqueueJob(ctx, models.JobTypeApplePush, models.ApplePushPayload{
		SerialNumber: "PASS-1",
		DeviceToken:  "token",
	}, 5)
	require.NoError(t, err)

	claimed, err := db.ClaimDueJobs(ctx, 10, -time.Second)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	again, err := db.ClaimDueJobs(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, id, again[0].ID)
}

func TestPassRecordRoundTrip(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	record := &models.PassRecord{
		ID:       "pass-1",
		HolderID: "holder-42",
		PassType: models.PassTypeLoyalty,
		Data: models.PassData{
			Title:         "Coffee Club",
			BrandColor:    "#4B3621",
			PointsBalance: "120",
			PointsLabel:   "Beans",
		},
		Status: models.PassStatusPending,
	}
	require.NoError(t, db.SavePassRecord(ctx, record))

	got, err := db.GetPassRecord(ctx, "pass-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "holder-42", got.HolderID)
	assert.Equal(t, models.PassTypeLoyalty, got.PassType)
	assert.Equal(t, "Coffee Club", got.Data.Title)
	assert.Equal(t, models.PassStatusPending, got.Status)
}

func TestGetPassRecord_NotFound(t *testing.T) {
	db := setupTestDatabase(t)

	got, err := db.GetPassRecord(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdatePassProviderRefsAndArtifacts(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	record := &models.PassRecord{
		ID:       "pass-1",
		HolderID: "holder-42",
		PassType: models.PassTypeGiftCard,
		Data:     models.PassData{Title: "Gift Card", Balance: "50"},
		Status:   models.PassStatusPending,
	}
	require.NoError(t, db.SavePassRecord(ctx, record))

	require.NoError(t, db.UpdatePassProviderRefs(ctx, "pass-1", "3388.abc", "3388.giftcard-def", "PASS-123-aabbccdd"))
	require.NoError(t, db.UpdatePassArtifacts(ctx, "pass-1", "https://qr.example/1", "https://save.example/1", "https://cdn.example/1.pkpass"))
	require.NoError(t, db.UpdatePassStatus(ctx, "pass-1", models.PassStatusActive))

	got, err := db.GetPassRecord(ctx, "pass-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "3388.abc", got.ClassID)
	assert.Equal(t, "3388.giftcard-def", got.ObjectID)
	assert.Equal(t, "PASS-123-aabbccdd", got.SerialNumber)
	assert.Equal(t, "https://qr.example/1", got.QRCodeURL)
	assert.Equal(t, models.PassStatusActive, got.Status)

	bySerial, err := db.GetPassRecordBySerial(ctx, "PASS-123-aabbccdd")
	require.NoError(t, err)
	require.NotNil(t, bySerial)
	assert.Equal(t, "pass-1", bySerial.ID)
}

func TestUpdatePass_MissingRecord(t *testing.T) {
	db := setupTestDatabase(t)

	err := db.UpdatePassStatus(context.Background(), "missing", models.PassStatusActive)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no pass record found")
}
