package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJobPayload(t *testing.T) {
	tests := []struct {
		name    string
		jobType JobType
		payload string
		wantErr string
		check   func(t *testing.T, p *JobPayload)
	}{
		{
			name:    "google patch",
			jobType: JobTypeGooglePatch,
			payload: `{"objectId":"3388.loyalty-abc","balance":150}`,
			check: func(t *testing.T, p *JobPayload) {
				require.NotNil(t, p.GooglePatch)
				assert.Equal(t, "3388.loyalty-abc", p.GooglePatch.ObjectID)
				assert.Equal(t, "150", p.GooglePatch.Balance.String())
			},
		},
		{
			name:    "google patch string balance",
			jobType: JobTypeGooglePatch,
			payload: `{"objectId":"3388.giftcard-def","balance":"25.50"}`,
			check: func(t *testing.T, p *JobPayload) {
				require.NotNil(t, p.GooglePatch)
				assert.Equal(t, "25.50", p.GooglePatch.Balance.String())
			},
		},
		{
			name:    "google patch missing object id",
			jobType: JobTypeGooglePatch,
			payload: `{"balance":150}`,
			wantErr: "missing objectId",
		},
		{
			name:    "regenerate",
			jobType: JobTypeRegeneratePass,
			payload: `{"passId":"pass-1","deviceToken":"tok"}`,
			check: func(t *testing.T, p *JobPayload) {
				require.NotNil(t, p.RegeneratePass)
				assert.Equal(t, "pass-1", p.RegeneratePass.PassID)
				assert.Equal(t, "tok", p.RegeneratePass.DeviceToken)
			},
		},
		{
			name:    "regenerate without device token",
			jobType: JobTypeRegeneratePass,
			payload: `{"passId":"pass-1"}`,
			check: func(t *testing.T, p *JobPayload) {
				require.NotNil(t, p.RegeneratePass)
				assert.Empty(t, p.RegeneratePass.DeviceToken)
			},
		},
		{
			name:    "regenerate missing pass id",
			jobType: JobTypeRegeneratePass,
			payload: `{}`,
			wantErr: "missing passId",
		},
		{
			name:    "apple push",
			jobType: JobTypeApplePush,
			payload: `{"serialNumber":"PASS-1","deviceToken":"tok"}`,
			check: func(t *testing.T, p *JobPayload) {
				require.NotNil(t, p.ApplePush)
				assert.Equal(t, "PASS-1", p.ApplePush.SerialNumber)
			},
		},
		{
			name:    "apple push missing token",
			jobType: JobTypeApplePush,
			payload: `{"serialNumber":"PASS-1"}`,
			wantErr: "missing serialNumber or deviceToken",
		},
		{
			name:    "malformed json",
			jobType: JobTypeGooglePatch,
			payload: `{not json`,
			wantErr: "malformed",
		},
		{
			name:    "unknown type",
			jobType: JobType("teleport"),
			payload: `{}`,
			wantErr: "unknown job type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &WalletJob{Type: tt.jobType, Payload: json.RawMessage(tt.payload)}
			decoded, err := DecodeJobPayload(job)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, decoded)
		})
	}
}
