package service

import (
	"context"

	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/metrics"
	"walletbridge/internal/models"
	"walletbridge/internal/privacy"
	"walletbridge/pkg/applepass"

	"github.com/sirupsen/logrus"
)

// Orchestrator coordinates both providers for pass issuance and updates.
// Provider failures surface to the caller; artifact uploads after a
// successful build are best-effort and never fail the parent operation.
type Orchestrator struct {
	passes    PassStore
	google    GoogleSynchronizer
	apple     BundleBuilder
	artifacts BundleStore
	logger    *logrus.Logger
	metrics   *metrics.Registry
}

func NewOrchestrator(passes PassStore, google GoogleSynchronizer, apple BundleBuilder, artifacts BundleStore, logger *logrus.Logger, registry *metrics.Registry) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &Orchestrator{
		passes:    passes,
		google:    google,
		apple:     apple,
		artifacts: artifacts,
		logger:    logger,
		metrics:   registry,
	}
}

// IssuePass provisions a new pass on both providers and persists the
// resulting references. The record must already be saved; issuance fills
// in class/object ids, the serial number and the artifact URLs.
func (o *Orchestrator) IssuePass(ctx context.Context, record *models.PassRecord) (*models.PassRecord, error) {
	googleArtifacts, err := o.google.CreatePass(ctx, record)
	if err != nil {
		if statusErr := o.passes.UpdatePassStatus(ctx, record.ID, models.PassStatusFailed); statusErr != nil {
			apperrors.LogWarn(o.logger, statusErr, "failed to mark pass failed")
		}
		return nil, err
	}

	bundle, err := o.apple.Build(ctx, record)
	if err != nil {
		if statusErr := o.passes.UpdatePassStatus(ctx, record.ID, models.PassStatusFailed); statusErr != nil {
			apperrors.LogWarn(o.logger, statusErr, "failed to mark pass failed")
		}
		return nil, err
	}

	if err := o.passes.UpdatePassProviderRefs(ctx, record.ID, googleArtifacts.ClassID, googleArtifacts.ObjectID, bundle.SerialNumber); err != nil {
		return nil, err
	}

	applePassURL := o.storeBundle(ctx, record.ID, bundle)

	if err := o.passes.UpdatePassArtifacts(ctx, record.ID, googleArtifacts.Link.QRCodeURL, googleArtifacts.Link.OriginalURL, applePassURL); err != nil {
		return nil, err
	}
	if err := o.passes.UpdatePassStatus(ctx, record.ID, models.PassStatusActive); err != nil {
		return nil, err
	}

	record.ClassID = googleArtifacts.ClassID
	record.ObjectID = googleArtifacts.ObjectID
	record.SerialNumber = bundle.SerialNumber
	record.QRCodeURL = googleArtifacts.Link.QRCodeURL
	record.PassURL = googleArtifacts.Link.OriginalURL
	record.ApplePassURL = applePassURL
	record.Status = models.PassStatusActive

	o.logger.WithFields(logrus.Fields{
		"passId":       record.ID,
		"classId":      record.ClassID,
		"serialNumber": privacy.MaskSerial(record.SerialNumber),
	}).Info("Issued pass on both providers")

	return record, nil
}

// PatchGoogleObject applies a balance update to an existing Google Wallet
// object. Pure pass-through; the synchronizer owns routing and errors.
func (o *Orchestrator) PatchGoogleObject(ctx context.Context, objectID, balance string) error {
	return o.google.PatchBalance(ctx, objectID, balance)
}

// RegenerateApplePass rebuilds the signed bundle for an existing pass,
// reusing its serial number so the device sees an update rather than a
// new pass. The rebuilt bundle is returned even when uploading it to the
// artifact store fails.
func (o *Orchestrator) RegenerateApplePass(ctx context.Context, passID string) (*applepass.SignedBundle, error) {
	record, err := o.passes.GetPassRecord(ctx, passID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NewNotFoundError("pass record", passID)
	}

	bundle, err := o.apple.Build(ctx, record)
	if err != nil {
		return nil, err
	}

	o.storeBundle(ctx, passID, bundle)
	return bundle, nil
}

// storeBundle uploads the bundle and records its URL. Both steps are
// best-effort: failures are logged and counted, and the empty URL tells
// readers no stored copy exists.
func (o *Orchestrator) storeBundle(ctx context.Context, passID string, bundle *applepass.SignedBundle) string {
	applePassURL, err := o.artifacts.Store(bundle.SerialNumber, bundle.Data)
	if err != nil {
		apperrors.LogWarn(o.logger, err, "failed to store pass bundle",
			logrus.Fields{"passId": passID})
		o.metrics.IncrementCounter("bundle_store_failures", nil)
		return ""
	}

	if err := o.passes.UpdateApplePassURL(ctx, passID, applePassURL); err != nil {
		apperrors.LogWarn(o.logger, err, "failed to record pass bundle url",
			logrus.Fields{"passId": passID})
		o.metrics.IncrementCounter("bundle_store_failures", nil)
	}
	return applePassURL
}
