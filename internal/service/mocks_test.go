package service

import (
	"context"
	"sync"
	"time"

	"walletbridge/internal/models"
	"walletbridge/pkg/apns"
	"walletbridge/pkg/applepass"
	gwtypes "walletbridge/pkg/googlewallet/types"
)

// Mock job store
type mockJobStore struct {
	mu sync.Mutex

	dueJobs  []models.WalletJob
	fetchErr error

	failedCalls []failedCall
	doneIDs     []int64

	claimCalls int
	fetchCalls int
}

type failedCall struct {
	id       int64
	attempts int
	backoff  time.Duration
}

func (m *mockJobStore) FetchDueJobs(ctx context.Context, limit int) ([]models.WalletJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if limit < len(m.dueJobs) {
		return m.dueJobs[:limit], nil
	}
	return m.dueJobs, nil
}

func (m *mockJobStore) ClaimDueJobs(ctx context.Context, limit int, lease time.Duration) ([]models.WalletJob, error) {
	m.mu.Lock()
	m.claimCalls++
	m.mu.Unlock()
	return m.FetchDueJobs(ctx, limit)
}

func (m *mockJobStore) MarkJobFailed(ctx context.Context, id int64, attempts int, backoff time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedCalls = append(m.failedCalls, failedCall{id: id, attempts: attempts, backoff: backoff})
	return nil
}

func (m *mockJobStore) MarkJobDone(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doneIDs = append(m.doneIDs, id)
	return nil
}

// Mock pass store
type mockPassStore struct {
	records map[string]*models.PassRecord

	saveErr   error
	getErr    error
	updateErr error

	providerRefs  []string
	artifactURLs  []string
	applePassURLs []string
	statuses      []models.PassStatus
}

func newMockPassStore() *mockPassStore {
	return &mockPassStore{records: make(map[string]*models.PassRecord)}
}

func (m *mockPassStore) SavePassRecord(ctx context.Context, record *models.PassRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[record.ID] = record
	return nil
}

func (m *mockPassStore) GetPassRecord(ctx context.Context, id string) (*models.PassRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.records[id], nil
}

func (m *mockPassStore) UpdatePassProviderRefs(ctx context.Context, id, classID, objectID, serial string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.providerRefs = append(m.providerRefs, classID, objectID, serial)
	return nil
}

func (m *mockPassStore) UpdatePassArtifacts(ctx context.Context, id, qrCodeURL, passURL, applePassURL string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.artifactURLs = append(m.artifactURLs, qrCodeURL, passURL, applePassURL)
	return nil
}

func (m *mockPassStore) UpdateApplePassURL(ctx context.Context, id, applePassURL string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.applePassURLs = append(m.applePassURLs, applePassURL)
	return nil
}

func (m *mockPassStore) UpdatePassStatus(ctx context.Context, id string, status models.PassStatus) error {
	m.statuses = append(m.statuses, status)
	return nil
}

// Mock Google Wallet synchronizer
type mockGoogleSync struct {
	createResp *gwtypes.PassArtifacts
	createErr  error

	patchErr     error
	patchedIDs   []string
	patchBalance []string
}

func (m *mockGoogleSync) CreatePass(ctx context.Context, record *models.PassRecord) (*gwtypes.PassArtifacts, error) {
	return m.createResp, m.createErr
}

func (m *mockGoogleSync) PatchBalance(ctx context.Context, objectID, balance string) error {
	m.patchedIDs = append(m.patchedIDs, objectID)
	m.patchBalance = append(m.patchBalance, balance)
	return m.patchErr
}

// Mock pkpass builder
type mockBundleBuilder struct {
	bundle   *applepass.SignedBundle
	buildErr error

	builtFor []string
}

func (m *mockBundleBuilder) Build(ctx context.Context, record *models.PassRecord) (*applepass.SignedBundle, error) {
	m.builtFor = append(m.builtFor, record.ID)
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	return m.bundle, nil
}

// Mock push sender
type mockPushSender struct {
	result  *apns.PushResult
	pushErr error

	pushedTokens  []string
	pushedSerials []string
}

func (m *mockPushSender) Push(ctx context.Context, deviceToken, serialNumber string) (*apns.PushResult, error) {
	m.pushedTokens = append(m.pushedTokens, deviceToken)
	m.pushedSerials = append(m.pushedSerials, serialNumber)
	if m.pushErr != nil {
		return &apns.PushResult{Success: false, Err: m.pushErr}, m.pushErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &apns.PushResult{Success: true, StatusCode: 200}, nil
}

// Mock bundle store
type mockBundleStore struct {
	storeErr  error
	storedURL string

	storedSerials []string
}

func (m *mockBundleStore) Store(serialNumber string, data []byte) (string, error) {
	if m.storeErr != nil {
		return "", m.storeErr
	}
	m.storedSerials = append(m.storedSerials, serialNumber)
	if m.storedURL != "" {
		return m.storedURL, nil
	}
	return "https://cdn.example/" + serialNumber + ".pkpass", nil
}

func (m *mockBundleStore) Load(serialNumber string) ([]byte, error) {
	return nil, nil
}
