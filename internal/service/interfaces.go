package service

import (
	"context"
	"time"

	"walletbridge/internal/models"
	"walletbridge/pkg/apns"
	"walletbridge/pkg/applepass"
	gwtypes "walletbridge/pkg/googlewallet/types"
)

// JobStore is the dispatcher's view of the job queue.
type JobStore interface {
	FetchDueJobs(ctx context.Context, limit int) ([]models.WalletJob, error)
	ClaimDueJobs(ctx context.Context, limit int, lease time.Duration) ([]models.WalletJob, error)
	MarkJobFailed(ctx context.Context, id int64, attempts int, backoff time.Duration) error
	MarkJobDone(ctx context.Context, id int64) error
}

// PassStore is the orchestrator's view of persisted pass records.
type PassStore interface {
	SavePassRecord(ctx context.Context, record *models.PassRecord) error
	GetPassRecord(ctx context.Context, id string) (*models.PassRecord, error)
	UpdatePassProviderRefs(ctx context.Context, id, classID, objectID, serial string) error
	UpdatePassArtifacts(ctx context.Context, id, qrCodeURL, passURL, applePassURL string) error
	UpdateApplePassURL(ctx context.Context, id, applePassURL string) error
	UpdatePassStatus(ctx context.Context, id string, status models.PassStatus) error
}

// GoogleSynchronizer issues and updates Google Wallet passes.
type GoogleSynchronizer interface {
	CreatePass(ctx context.Context, record *models.PassRecord) (*gwtypes.PassArtifacts, error)
	PatchBalance(ctx context.Context, objectID, balance string) error
}

// BundleBuilder produces signed pkpass bundles.
type BundleBuilder interface {
	Build(ctx context.Context, record *models.PassRecord) (*applepass.SignedBundle, error)
}

// PushSender wakes a registered device so it refreshes its pass.
type PushSender interface {
	Push(ctx context.Context, deviceToken, serialNumber string) (*apns.PushResult, error)
}

// BundleStore persists signed bundles and returns their public URL.
type BundleStore interface {
	Store(serialNumber string, data []byte) (string, error)
	Load(serialNumber string) ([]byte, error)
}
