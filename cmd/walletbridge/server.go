package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"walletbridge/internal/constants"
	"walletbridge/internal/database"
	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/metrics"
	"walletbridge/internal/models"
	"walletbridge/internal/service"
	"walletbridge/internal/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router       *mux.Router
	logger       *logrus.Logger
	db           *database.Database
	orchestrator *service.Orchestrator
	dispatcher   *service.Dispatcher
	artifacts    *storage.ArtifactStore
	metrics      *metrics.Registry
	cfg          *models.Config
	server       *http.Server
}

func NewServer(db *database.Database, orchestrator *service.Orchestrator, dispatcher *service.Dispatcher, artifacts *storage.ArtifactStore, registry *metrics.Registry, cfg *models.Config, logger *logrus.Logger) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		logger:       logger,
		db:           db,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		artifacts:    artifacts,
		metrics:      registry,
		cfg:          cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/passes", s.handleCreatePass()).Methods(http.MethodPost)
	v1.HandleFunc("/passes/{id}", s.handleGetPass()).Methods(http.MethodGet)
	v1.HandleFunc("/passes/{id}/jobs", s.handleEnqueueJob()).Methods(http.MethodPost)
	v1.HandleFunc("/passes/{id}/pkpass", s.handleDownloadBundle()).Methods(http.MethodGet)
	v1.HandleFunc("/passes/{id}/save-link", s.handleSaveLink()).Methods(http.MethodGet)
	v1.HandleFunc("/bundles/{serial}", s.handleDownloadBundleBySerial()).Methods(http.MethodGet)
	v1.HandleFunc("/worker/run", s.handleRunWorker()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = fmt.Sprintf("%d", constants.DefaultServerPort)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting server on port %s", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
	}
}

type createPassRequest struct {
	HolderID    string          `json:"holderId"`
	PassType    models.PassType `json:"passType"`
	Data        models.PassData `json:"passData"`
	DeviceToken string          `json:"deviceToken,omitempty"`
}

// handleCreatePass persists a new pass record and issues it on both
// providers synchronously.
func (s *Server) handleCreatePass() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPassRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.HolderID == "" || req.Data.Title == "" {
			s.writeError(w, http.StatusBadRequest, "holderId and passData.title are required")
			return
		}
		if req.PassType == "" {
			req.PassType = models.PassTypeGeneric
		}

		record := &models.PassRecord{
			ID:          uuid.New().String(),
			HolderID:    req.HolderID,
			PassType:    req.PassType,
			Data:        req.Data,
			DeviceToken: req.DeviceToken,
			Status:      models.PassStatusPending,
		}

		if err := s.db.SavePassRecord(r.Context(), record); err != nil {
			apperrors.LogError(s.logger, err, "failed to save pass record")
			s.writeError(w, http.StatusInternalServerError, "failed to save pass")
			return
		}

		issued, err := s.orchestrator.IssuePass(r.Context(), record)
		if err != nil {
			apperrors.LogError(s.logger, err, "failed to issue pass",
				logrus.Fields{"passId": record.ID})
			s.writeError(w, http.StatusBadGateway, "pass issuance failed")
			return
		}

		s.writeJSON(w, http.StatusCreated, issued)
	}
}

func (s *Server) handleGetPass() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, ok := s.loadPass(w, r)
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, record)
	}
}

type enqueueJobRequest struct {
	Type        models.JobType `json:"type"`
	Balance     json.Number    `json:"balance,omitempty"`
	DeviceToken string         `json:"deviceToken,omitempty"`
}

// handleEnqueueJob creates an asynchronous update job for a pass. The
// job runs on the next worker batch.
func (s *Server) handleEnqueueJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, ok := s.loadPass(w, r)
		if !ok {
			return
		}

		var req enqueueJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var payload interface{}
		switch req.Type {
		case models.JobTypeGooglePatch:
			if record.ObjectID == "" {
				s.writeError(w, http.StatusConflict, "pass has no wallet object yet")
				return
			}
			payload = models.GooglePatchPayload{ObjectID: record.ObjectID, Balance: req.Balance}
		case models.JobTypeRegeneratePass:
			deviceToken := req.DeviceToken
			if deviceToken == "" {
				deviceToken = record.DeviceToken
			}
			payload = models.RegeneratePassPayload{PassID: record.ID, DeviceToken: deviceToken}
		case models.JobTypeApplePush:
			deviceToken := req.DeviceToken
			if deviceToken == "" {
				deviceToken = record.DeviceToken
			}
			if record.SerialNumber == "" || deviceToken == "" {
				s.writeError(w, http.StatusConflict, "pass has no serial number or device token")
				return
			}
			payload = models.ApplePushPayload{SerialNumber: record.SerialNumber, DeviceToken: deviceToken}
		default:
			s.writeError(w, http.StatusBadRequest, "unknown job type")
			return
		}

		id, err := s.db.EnqueueJob(r.Context(), req.Type, payload, s.cfg.Jobs.MaxAttempts)
		if err != nil {
			apperrors.LogError(s.logger, err, "failed to enqueue job",
				logrus.Fields{"passId": record.ID, "type": req.Type})
			s.writeError(w, http.StatusInternalServerError, "failed to enqueue job")
			return
		}

		s.writeJSON(w, http.StatusAccepted, map[string]interface{}{"jobId": id})
	}
}

// handleDownloadBundle serves the stored bundle, rebuilding it when no
// stored copy exists.
func (s *Server) handleDownloadBundle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, ok := s.loadPass(w, r)
		if !ok {
			return
		}

		if record.SerialNumber != "" {
			if data, err := s.artifacts.Load(record.SerialNumber); err == nil && data != nil {
				s.writeBundle(w, record.SerialNumber, data)
				return
			}
		}

		bundle, err := s.orchestrator.RegenerateApplePass(r.Context(), record.ID)
		if err != nil {
			apperrors.LogError(s.logger, err, "failed to regenerate pass bundle",
				logrus.Fields{"passId": record.ID})
			s.writeError(w, http.StatusBadGateway, "bundle generation failed")
			return
		}
		s.writeBundle(w, bundle.SerialNumber, bundle.Data)
	}
}

// handleDownloadBundleBySerial serves the bundle for a caller that only
// knows the pass serial number, the identifier devices hold.
func (s *Server) handleDownloadBundleBySerial() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serial := mux.Vars(r)["serial"]

		record, err := s.db.GetPassRecordBySerial(r.Context(), serial)
		if err != nil {
			apperrors.LogError(s.logger, err, "failed to load pass record",
				logrus.Fields{"serialNumber": serial})
			s.writeError(w, http.StatusInternalServerError, "failed to load pass")
			return
		}
		if record == nil {
			s.writeError(w, http.StatusNotFound, "pass not found")
			return
		}

		if data, err := s.artifacts.Load(serial); err == nil && data != nil {
			s.writeBundle(w, serial, data)
			return
		}

		bundle, err := s.orchestrator.RegenerateApplePass(r.Context(), record.ID)
		if err != nil {
			apperrors.LogError(s.logger, err, "failed to regenerate pass bundle",
				logrus.Fields{"passId": record.ID})
			s.writeError(w, http.StatusBadGateway, "bundle generation failed")
			return
		}
		s.writeBundle(w, bundle.SerialNumber, bundle.Data)
	}
}

func (s *Server) handleSaveLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, ok := s.loadPass(w, r)
		if !ok {
			return
		}
		if record.PassURL == "" {
			s.writeError(w, http.StatusConflict, "pass has not been issued yet")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"saveUrl":   record.PassURL,
			"qrCodeUrl": record.QRCodeURL,
		})
	}
}

// handleRunWorker drains one job batch on demand, for deployments that
// trigger processing externally instead of running the scheduler.
func (s *Server) handleRunWorker() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processed, err := s.dispatcher.RunBatch(r.Context())
		if err != nil {
			apperrors.LogError(s.logger, err, "job batch failed")
			s.writeError(w, http.StatusInternalServerError, "job batch failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"processed": processed})
	}
}

func (s *Server) loadPass(w http.ResponseWriter, r *http.Request) (*models.PassRecord, bool) {
	id := mux.Vars(r)["id"]

	record, err := s.db.GetPassRecord(r.Context(), id)
	if err != nil {
		apperrors.LogError(s.logger, err, "failed to load pass record",
			logrus.Fields{"passId": id})
		s.writeError(w, http.StatusInternalServerError, "failed to load pass")
		return nil, false
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "pass not found")
		return nil, false
	}
	return record, true
}

func (s *Server) writeBundle(w http.ResponseWriter, serial string, data []byte) {
	w.Header().Set("Content-Type", constants.PKPassContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", serial+".pkpass"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
