package applepass

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"walletbridge/internal/constants"
	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Builder assembles and signs .pkpass bundles. The signing configuration
// is validated before any network work so a misconfigured signer fails
// fast instead of after fetching images.
type Builder struct {
	cfg    models.ApplePassConfig
	signer *Signer
	images *ImageFetcher
	logger *logrus.Logger
}

func NewBuilder(cfg models.ApplePassConfig, signer *Signer, images *ImageFetcher, logger *logrus.Logger) *Builder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Builder{
		cfg:    cfg,
		signer: signer,
		images: images,
		logger: logger,
	}
}

// Build produces a signed bundle for the pass record. When
// record.SerialNumber is set it is reused unchanged, so regeneration
// keeps the pass identity stable on the holder's device.
func (b *Builder) Build(ctx context.Context, record *models.PassRecord) (*SignedBundle, error) {
	if err := b.checkSigningConfig(); err != nil {
		return nil, err
	}

	serial := record.SerialNumber
	if serial == "" {
		serial = GenerateSerialNumber()
	}

	definition := b.buildDefinition(record, serial)
	passJSON, err := json.MarshalIndent(definition, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to marshal pass definition").
			WithStep(apperrors.StepBundleBuild)
	}

	files := map[string][]byte{
		"pass.json": passJSON,
	}
	b.images.Collect(ctx, record.Data, files)

	archive, err := b.signer.SignAndZip(files)
	if err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"serialNumber": serial,
		"passType":     record.PassType,
		"files":        len(files),
	}).Info("Built signed pass bundle")

	return &SignedBundle{
		SerialNumber: serial,
		Data:         archive,
		ContentType:  constants.PKPassContentType,
	}, nil
}

// GenerateSerialNumber creates a new unique serial number. Serials are
// generated once per pass and reused for every regeneration afterwards.
func GenerateSerialNumber() string {
	id := uuid.New()
	return fmt.Sprintf("PASS-%s-%s",
		strconv.FormatInt(time.Now().UnixMilli(), 10),
		hex.EncodeToString(id[:constants.SerialNumberRandBytes]))
}

func (b *Builder) checkSigningConfig() error {
	hasPEMPair := b.cfg.CertPath != "" && b.cfg.KeyPath != ""
	hasP12 := b.cfg.P12Path != ""

	switch {
	case b.cfg.PassTypeIdentifier == "":
		return apperrors.NewConfigError("applePass.passTypeIdentifier", "pass type identifier is required").
			WithStep(apperrors.StepSigningConfig)
	case b.cfg.TeamIdentifier == "":
		return apperrors.NewConfigError("applePass.teamIdentifier", "team identifier is required").
			WithStep(apperrors.StepSigningConfig)
	case !hasPEMPair && !hasP12:
		return apperrors.NewConfigError("applePass.certPath", "signing certificate is required").
			WithStep(apperrors.StepSigningConfig)
	}
	return nil
}

func (b *Builder) buildDefinition(record *models.PassRecord, serial string) *PassDefinition {
	data := record.Data

	description := data.Description
	if description == "" {
		description = data.Title
	}

	definition := &PassDefinition{
		FormatVersion:      constants.PassFormatVersion,
		PassTypeIdentifier: b.cfg.PassTypeIdentifier,
		SerialNumber:       serial,
		TeamIdentifier:     b.cfg.TeamIdentifier,
		OrganizationName:   b.cfg.OrganizationName,
		Description:        description,
		LogoText:           data.Title,
		BackgroundColor:    data.BrandColor,
		ExpirationDate:     data.ExpiryDate,
	}

	if data.Barcode != nil {
		definition.Barcodes = []PKBarcode{{
			Format:          barcodeFormatFor(data.Barcode.Format),
			Message:         data.Barcode.Value,
			MessageEncoding: "iso-8859-1",
			AltText:         data.Barcode.AltText,
		}}
	}

	structure := b.buildStructure(record.PassType, data)
	switch styleFor(record.PassType) {
	case "storeCard":
		definition.StoreCard = structure
	case "coupon":
		definition.Coupon = structure
	case "eventTicket":
		definition.EventTicket = structure
	case "boardingPass":
		structure.TransitType = "PKTransitTypeGeneric"
		definition.BoardingPass = structure
	default:
		definition.Generic = structure
	}

	return definition
}

// buildStructure maps semantic pass content onto the style's field
// groups. Empty values are skipped entirely rather than rendered blank.
func (b *Builder) buildStructure(passType models.PassType, data models.PassData) *PassStructure {
	structure := &PassStructure{}

	switch passType {
	case models.PassTypeLoyalty:
		addField(&structure.HeaderFields, "points", data.PointsLabel, data.PointsBalance)
		addField(&structure.SecondaryFields, "tier", "Tier", data.Tier)
		addField(&structure.SecondaryFields, "rewardThreshold", "Next Reward", data.RewardThreshold)
	case models.PassTypeGiftCard:
		addField(&structure.HeaderFields, "balance", "Balance", data.Balance)
	case models.PassTypeOffer:
		addField(&structure.PrimaryFields, "offer", "Offer", data.OfferCode)
	default:
		addField(&structure.PrimaryFields, "title", "", data.Title)
	}

	addField(&structure.AuxiliaryFields, "issueDate", "Issued", data.IssueDate)
	addField(&structure.AuxiliaryFields, "expiryDate", "Expires", data.ExpiryDate)
	addField(&structure.BackFields, "description", "About", data.Description)
	addField(&structure.BackFields, "website", "Website", data.Website)
	addField(&structure.BackFields, "support", "Support", data.SupportEmail)

	return structure
}

func addField(fields *[]PassField, key, label, value string) {
	if value == "" {
		return
	}
	*fields = append(*fields, PassField{Key: key, Label: label, Value: value})
}
