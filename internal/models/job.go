package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type JobType string

const (
	JobTypeApplePush      JobType = "apple_push"
	JobTypeGooglePatch    JobType = "google_patch"
	JobTypeRegeneratePass JobType = "regenerate_pkpass"
)

// WalletJob is one pending synchronization job in the job store.
// Rows are mutated only by the dispatcher (attempts, next_run_at) and
// deleted on success or when attempts are exhausted.
type WalletJob struct {
	ID          int64           `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	NextRunAt   time.Time       `json:"nextRunAt"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// GooglePatchPayload updates the balance of an existing Google Wallet object.
type GooglePatchPayload struct {
	ObjectID string      `json:"objectId"`
	Balance  json.Number `json:"balance"`
}

// RegeneratePassPayload rebuilds the signed bundle for a pass record and,
// when a device token is known, wakes the device afterwards.
type RegeneratePassPayload struct {
	PassID      string `json:"passId"`
	DeviceToken string `json:"deviceToken,omitempty"`
}

// ApplePushPayload sends a silent refresh push for one registered device.
type ApplePushPayload struct {
	SerialNumber string `json:"serialNumber"`
	DeviceToken  string `json:"deviceToken"`
}

// JobPayload is the decoded form of a job's raw payload. Exactly one of the
// pointers is set, matching the job type.
type JobPayload struct {
	GooglePatch    *GooglePatchPayload
	RegeneratePass *RegeneratePassPayload
	ApplePush      *ApplePushPayload
}

// DecodeJobPayload parses the raw payload according to the job type.
// An unknown type or malformed payload is a poison job, never retryable.
func DecodeJobPayload(job *WalletJob) (*JobPayload, error) {
	switch job.Type {
	case JobTypeGooglePatch:
		var p GooglePatchPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed google_patch payload: %w", err)
		}
		if p.ObjectID == "" {
			return nil, fmt.Errorf("google_patch payload missing objectId")
		}
		return &JobPayload{GooglePatch: &p}, nil

	case JobTypeRegeneratePass:
		var p RegeneratePassPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed regenerate_pkpass payload: %w", err)
		}
		if p.PassID == "" {
			return nil, fmt.Errorf("regenerate_pkpass payload missing passId")
		}
		return &JobPayload{RegeneratePass: &p}, nil

	case JobTypeApplePush:
		var p ApplePushPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed apple_push payload: %w", err)
		}
		if p.SerialNumber == "" || p.DeviceToken == "" {
			return nil, fmt.Errorf("apple_push payload missing serialNumber or deviceToken")
		}
		return &JobPayload{ApplePush: &p}, nil

	default:
		return nil, fmt.Errorf("unknown job type: %s", job.Type)
	}
}
