package googlewallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"walletbridge/internal/constants"
	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/models"
	"walletbridge/pkg/googlewallet/types"

	"github.com/sirupsen/logrus"
)

// Config holds the issuer identity used for template/object ids and
// save-link claims.
type Config struct {
	IssuerID    string
	IssuerEmail string
	Origins     []string
}

// Synchronizer maintains the template/object lifecycle on Google Wallet:
// templates are content-addressed and shared, objects are always unique.
type Synchronizer struct {
	cfg    Config
	api    types.APIClient
	links  *SaveLinkBuilder
	qr     *QRGenerator
	logger *logrus.Logger
}

func NewSynchronizer(cfg Config, api types.APIClient, links *SaveLinkBuilder, qr *QRGenerator, logger *logrus.Logger) *Synchronizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Synchronizer{
		cfg:    cfg,
		api:    api,
		links:  links,
		qr:     qr,
		logger: logger,
	}
}

// KindForPassType maps the semantic pass type onto the provider's
// resource family.
func KindForPassType(passType models.PassType) types.ObjectKind {
	switch passType {
	case models.PassTypeLoyalty:
		return types.KindLoyalty
	case models.PassTypeGiftCard:
		return types.KindGiftCard
	case models.PassTypeOffer:
		return types.KindOffer
	default:
		return types.KindGeneric
	}
}

// TemplateID derives the deterministic, content-addressed template id.
// Identical {title, type, brandColor, logo} always hash to the same id, so
// passes sharing branding share one template.
func (s *Synchronizer) TemplateID(data models.PassData, passType models.PassType) string {
	sum := sha256.Sum256([]byte(data.Title + "|" + string(passType) + "|" + data.BrandColor + "|" + data.Logo))
	return s.cfg.IssuerID + "." + hex.EncodeToString(sum[:])[:constants.TemplateIDHashLen]
}

// ObjectID derives a unique per-holder object id. The timestamp component
// makes every creation unique; the kind tag makes the patch path
// dispatchable without probing endpoints.
func (s *Synchronizer) ObjectID(holderID string, passType models.PassType, now time.Time) string {
	sum := sha256.Sum256([]byte(holderID + "|" + strconv.FormatInt(now.UnixNano(), 10)))
	return fmt.Sprintf("%s.%s-%s", s.cfg.IssuerID, KindForPassType(passType), hex.EncodeToString(sum[:])[:constants.ObjectIDHashLen])
}

// KindFromObjectID recovers the resource family embedded in an object id.
func KindFromObjectID(objectID string) (types.ObjectKind, error) {
	dot := strings.Index(objectID, ".")
	if dot < 0 {
		return "", fmt.Errorf("malformed object id: %s", objectID)
	}
	rest := objectID[dot+1:]
	dash := strings.Index(rest, "-")
	if dash <= 0 {
		return "", fmt.Errorf("object id missing kind tag: %s", objectID)
	}

	switch kind := types.ObjectKind(rest[:dash]); kind {
	case types.KindLoyalty, types.KindGiftCard, types.KindOffer, types.KindGeneric:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown object kind %q in id %s", kind, objectID)
	}
}

// EnsureTemplate gets or creates the shared template for a pass. A second
// call with identical content finds the template on the GET and performs
// no insert.
func (s *Synchronizer) EnsureTemplate(ctx context.Context, data models.PassData, passType models.PassType) (*types.TemplateResult, error) {
	kind := KindForPassType(passType)
	classID := s.TemplateID(data, passType)

	existing, err := s.api.GetClass(ctx, kind, classID)
	if err != nil {
		return &types.TemplateResult{State: types.TemplateStateFailed},
			wrapWithStep(err, apperrors.StepTemplateVerification, "template verification failed")
	}
	if existing != nil {
		s.logger.WithField("classId", classID).Debug("Reusing existing wallet template")
		return &types.TemplateResult{Template: existing, State: types.TemplateStateExists}, nil
	}

	template := s.buildTemplate(classID, data)
	if err := s.api.InsertClass(ctx, kind, template); err != nil {
		return &types.TemplateResult{State: types.TemplateStateFailed},
			wrapWithStep(err, apperrors.StepTemplateCreation, "template creation failed")
	}

	s.logger.WithField("classId", classID).Info("Created wallet template")
	return &types.TemplateResult{Template: template, State: types.TemplateStateCreated}, nil
}

// CreatePass ensures the template, builds a fresh unique object and
// produces the save link plus QR artifacts for one pass record.
func (s *Synchronizer) CreatePass(ctx context.Context, record *models.PassRecord) (*types.PassArtifacts, error) {
	templateResult, err := s.EnsureTemplate(ctx, record.Data, record.PassType)
	if err != nil {
		return nil, err
	}

	object := s.buildObject(record, templateResult.Template.ID)

	token, err := s.links.BuildToken(KindForPassType(record.PassType), templateResult.Template, object)
	if err != nil {
		return nil, wrapWithStep(err, apperrors.StepSaveLink, "save link signing failed")
	}
	saveURL := s.links.SaveURL(token)

	link := s.qr.Generate(ctx, saveURL)

	return &types.PassArtifacts{
		ClassID:  templateResult.Template.ID,
		ObjectID: object.ID,
		Link:     link,
	}, nil
}

// PatchBalance updates the balance of an existing object. The endpoint is
// chosen from the kind tag in the object id; there is no probe loop.
func (s *Synchronizer) PatchBalance(ctx context.Context, objectID, balance string) error {
	kind, err := KindFromObjectID(objectID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "cannot route object patch").
			WithStep(apperrors.StepObjectPatch)
	}

	patch := &types.WalletObject{ID: objectID}
	switch kind {
	case types.KindLoyalty:
		patch.LoyaltyPoints = &types.LoyaltyPoints{Balance: types.BalanceValue{String: balance}}
	case types.KindGiftCard:
		patch.Balance = &types.BalanceValue{String: balance}
	default:
		patch.TextModules = []types.TextModule{{ID: "balance", Body: balance}}
	}

	if err := s.api.PatchObject(ctx, kind, objectID, patch); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"objectId": objectID,
		"kind":     kind,
	}).Info("Patched wallet object balance")
	return nil
}

func (s *Synchronizer) buildTemplate(classID string, data models.PassData) *types.Template {
	template := &types.Template{
		ID:                 classID,
		IssuerName:         data.Title,
		ProgramName:        data.Title,
		HexBackgroundColor: data.BrandColor,
	}
	if data.Logo != "" {
		template.ProgramLogo = &types.Image{SourceURI: types.ImageURI{URI: data.Logo}}
	}
	return template
}

func (s *Synchronizer) buildObject(record *models.PassRecord, classID string) *types.WalletObject {
	object := &types.WalletObject{
		ID:          s.ObjectID(record.HolderID, record.PassType, time.Now()),
		ClassID:     classID,
		State:       "ACTIVE",
		AccountID:   record.HolderID,
		AccountName: record.Data.Title,
	}

	switch record.PassType {
	case models.PassTypeLoyalty:
		object.LoyaltyPoints = &types.LoyaltyPoints{
			Label:   record.Data.PointsLabel,
			Balance: types.BalanceValue{String: record.Data.PointsBalance},
		}
	case models.PassTypeGiftCard:
		object.Balance = &types.BalanceValue{String: record.Data.Balance}
	case models.PassTypeOffer:
		object.TextModules = append(object.TextModules, types.TextModule{
			ID:   "offerCode",
			Body: record.Data.OfferCode,
		})
	}

	if record.Data.Barcode != nil {
		object.Barcode = &types.Barcode{
			Type:          record.Data.Barcode.Format,
			Value:         record.Data.Barcode.Value,
			AlternateText: record.Data.Barcode.AltText,
		}
	}
	return object
}

func wrapWithStep(err error, step apperrors.Step, message string) error {
	if appErr, ok := err.(*apperrors.AppError); ok {
		if appErr.Step == "" {
			appErr.Step = step
		}
		return appErr
	}
	return apperrors.Wrap(err, apperrors.ErrCodeGoogleWalletAPI, message).WithStep(step)
}
