package applepass

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()

	certPath, keyPath := writeTestCertPair(t)
	cfg := models.ApplePassConfig{
		PassTypeIdentifier: "pass.com.example.wallet",
		TeamIdentifier:     "TEAM123456",
		OrganizationName:   "Example Corp",
		CertPath:           certPath,
		KeyPath:            keyPath,
	}

	signer, err := NewSigner(cfg)
	require.NoError(t, err)
	return NewBuilder(cfg, signer, NewImageFetcher(nil, nil, nil), nil)
}

func buildAndDecode(t *testing.T, builder *Builder, record *models.PassRecord) (*SignedBundle, *PassDefinition) {
	t.Helper()

	bundle, err := builder.Build(context.Background(), record)
	require.NoError(t, err)

	entries := readArchive(t, bundle.Data)
	require.Contains(t, entries, "pass.json")

	var definition PassDefinition
	require.NoError(t, json.Unmarshal(entries["pass.json"], &definition))
	return bundle, &definition
}

func TestBuild_MissingConfigFailsFast(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.ApplePassConfig
	}{
		{"no pass type identifier", models.ApplePassConfig{TeamIdentifier: "T", CertPath: "c", KeyPath: "k"}},
		{"no team identifier", models.ApplePassConfig{PassTypeIdentifier: "p", CertPath: "c", KeyPath: "k"}},
		{"no signing material", models.ApplePassConfig{PassTypeIdentifier: "p", TeamIdentifier: "T"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewBuilder(tt.cfg, nil, NewImageFetcher(nil, nil, nil), nil)

			record := &models.PassRecord{
				ID:       "pass-1",
				PassType: models.PassTypeLoyalty,
				Data:     models.PassData{Title: "Coffee Club", Logo: "https://img.example/logo.png"},
			}
			_, err := builder.Build(context.Background(), record)

			require.Error(t, err)
			assert.Equal(t, apperrors.StepSigningConfig, apperrors.GetStep(err))
			assert.False(t, apperrors.IsRetryable(err), "configuration failures must not be retried")
		})
	}
}

func TestBuild_SerialNumberStability(t *testing.T) {
	builder := newTestBuilder(t)

	record := &models.PassRecord{
		ID:           "pass-1",
		PassType:     models.PassTypeLoyalty,
		SerialNumber: "PASS-1700000000000-aabbccdd",
		Data:         models.PassData{Title: "Coffee Club"},
	}

	bundle, definition := buildAndDecode(t, builder, record)
	assert.Equal(t, "PASS-1700000000000-aabbccdd", bundle.SerialNumber, "regeneration must keep the serial number")
	assert.Equal(t, "PASS-1700000000000-aabbccdd", definition.SerialNumber)
}

func TestBuild_GeneratesSerialWhenAbsent(t *testing.T) {
	builder := newTestBuilder(t)

	record := &models.PassRecord{
		ID:       "pass-1",
		PassType: models.PassTypeLoyalty,
		Data:     models.PassData{Title: "Coffee Club"},
	}

	bundle, _ := buildAndDecode(t, builder, record)
	assert.Regexp(t, regexp.MustCompile(`^PASS-\d+-[0-9a-f]{8}$`), bundle.SerialNumber)
	assert.Equal(t, "application/vnd.apple.pkpass", bundle.ContentType)
}

func TestGenerateSerialNumber_Unique(t *testing.T) {
	first := GenerateSerialNumber()
	second := GenerateSerialNumber()
	assert.NotEqual(t, first, second)
}

func TestBuild_LoyaltyFieldMapping(t *testing.T) {
	builder := newTestBuilder(t)

	record := &models.PassRecord{
		ID:       "pass-1",
		PassType: models.PassTypeLoyalty,
		Data: models.PassData{
			Title:           "Coffee Club",
			PointsBalance:   "120",
			PointsLabel:     "Beans",
			Tier:            "Gold",
			RewardThreshold: "200",
			IssueDate:       "2026-01-15",
			Description:     "Earn beans with every cup.",
			Website:         "https://coffee.example",
		},
	}

	_, definition := buildAndDecode(t, builder, record)
	require.NotNil(t, definition.StoreCard, "loyalty passes use the store card style")
	assert.Nil(t, definition.Coupon)

	structure := definition.StoreCard
	require.Len(t, structure.HeaderFields, 1)
	assert.Equal(t, "Beans", structure.HeaderFields[0].Label)
	assert.Equal(t, "120", structure.HeaderFields[0].Value)

	require.Len(t, structure.SecondaryFields, 2)
	assert.Equal(t, "Gold", structure.SecondaryFields[0].Value)
	assert.Equal(t, "200", structure.SecondaryFields[1].Value)

	require.Len(t, structure.AuxiliaryFields, 1, "empty expiry must be skipped")
	assert.Equal(t, "2026-01-15", structure.AuxiliaryFields[0].Value)

	assert.Len(t, structure.BackFields, 2)
}

func TestBuild_GiftCardFieldMapping(t *testing.T) {
	builder := newTestBuilder(t)

	record := &models.PassRecord{
		ID:       "pass-1",
		PassType: models.PassTypeGiftCard,
		Data:     models.PassData{Title: "Gift Card", Balance: "50.00"},
	}

	_, definition := buildAndDecode(t, builder, record)
	require.NotNil(t, definition.StoreCard)
	require.Len(t, definition.StoreCard.HeaderFields, 1)
	assert.Equal(t, "50.00", definition.StoreCard.HeaderFields[0].Value)
}

func TestBuild_StyleSelection(t *testing.T) {
	builder := newTestBuilder(t)

	tests := []struct {
		passType models.PassType
		check    func(t *testing.T, d *PassDefinition)
	}{
		{models.PassTypeOffer, func(t *testing.T, d *PassDefinition) {
			require.NotNil(t, d.Coupon)
			require.Len(t, d.Coupon.PrimaryFields, 1)
		}},
		{models.PassTypeEvent, func(t *testing.T, d *PassDefinition) {
			require.NotNil(t, d.EventTicket)
		}},
		{models.PassTypeBoarding, func(t *testing.T, d *PassDefinition) {
			require.NotNil(t, d.BoardingPass)
			assert.Equal(t, "PKTransitTypeGeneric", d.BoardingPass.TransitType)
		}},
		{models.PassTypeGeneric, func(t *testing.T, d *PassDefinition) {
			require.NotNil(t, d.Generic)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.passType), func(t *testing.T) {
			record := &models.PassRecord{
				ID:       "pass-1",
				PassType: tt.passType,
				Data:     models.PassData{Title: "Test Pass", OfferCode: "SAVE20"},
			}
			_, definition := buildAndDecode(t, builder, record)
			tt.check(t, definition)
		})
	}
}

func TestBuild_BarcodeAndIdentity(t *testing.T) {
	builder := newTestBuilder(t)

	record := &models.PassRecord{
		ID:       "pass-1",
		PassType: models.PassTypeLoyalty,
		Data: models.PassData{
			Title:      "Coffee Club",
			BrandColor: "#4B3621",
			Barcode:    &models.Barcode{Format: "qr", Value: "MEMBER-42", AltText: "MEMBER-42"},
		},
	}

	_, definition := buildAndDecode(t, builder, record)
	assert.Equal(t, 1, definition.FormatVersion)
	assert.Equal(t, "pass.com.example.wallet", definition.PassTypeIdentifier)
	assert.Equal(t, "TEAM123456", definition.TeamIdentifier)
	assert.Equal(t, "Example Corp", definition.OrganizationName)
	assert.Equal(t, "#4B3621", definition.BackgroundColor)

	require.Len(t, definition.Barcodes, 1)
	assert.Equal(t, "PKBarcodeFormatQR", definition.Barcodes[0].Format)
	assert.Equal(t, "MEMBER-42", definition.Barcodes[0].Message)
	assert.Equal(t, "iso-8859-1", definition.Barcodes[0].MessageEncoding)
}
