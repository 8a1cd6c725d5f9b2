package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/logging"
	"github.com/ekaya-inc/plantsync/pkg/metrics"
	"github.com/ekaya-inc/plantsync/pkg/models"
	"github.com/ekaya-inc/plantsync/pkg/repositories"
	"github.com/ekaya-inc/plantsync/pkg/retry"
)

// ReconciliationService runs the reconciliation engine once per call.
type ReconciliationService interface {
	// Run reconciles records against the catalog and writes the resulting
	// batch. Record-level problems are counted in the report and never fail
	// the run; a returned error always comes with Status failure.
	Run(ctx context.Context, records []models.RawRecord) (*models.RunReport, error)
}

// ReconciliationConfig holds run settings.
type ReconciliationConfig struct {
	// Lock is the run-level lock taken inside the write transaction.
	Lock storage.Lock
	// Retry applies to the whole locked transaction: snapshot load,
	// reconciliation and write.
	Retry *retry.Config
	// Clock defaults to the current time in UTC. Its reading at run start
	// stands in for missing recording_taken values.
	Clock func() time.Time
}

type reconciliationService struct {
	store    storage.Store
	catalogs repositories.CatalogRepository
	writer   repositories.BatchWriter
	recorder *metrics.Recorder
	cfg      ReconciliationConfig
	logger   *zap.Logger
}

// NewReconciliationService creates a reconciliation service. recorder may be nil.
func NewReconciliationService(
	store storage.Store,
	catalogs repositories.CatalogRepository,
	writer repositories.BatchWriter,
	recorder *metrics.Recorder,
	cfg ReconciliationConfig,
	logger *zap.Logger,
) ReconciliationService {
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	return &reconciliationService{
		store:    store,
		catalogs: catalogs,
		writer:   writer,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.Named("reconciliation"),
	}
}

func (s *reconciliationService) Run(ctx context.Context, records []models.RawRecord) (*models.RunReport, error) {
	started := s.cfg.Clock()
	report := &models.RunReport{
		RunID:   uuid.New(),
		Started: started,
	}
	logger := s.logger.With(zap.String("run_id", report.RunID.String()))

	defer func() {
		report.Duration = s.cfg.Clock().Sub(started)
		if s.recorder != nil {
			s.recorder.ObserveRun(report)
		}
		logger.Info("Run finished",
			zap.String("status", string(report.Status)),
			zap.Int("records", report.Records),
			zap.Int("accepted", report.Accepted),
			zap.Int("rejected", report.Rejected),
			zap.Any("reasons", report.Reasons),
			zap.Duration("duration", report.Duration))
	}()

	admitted := Admit(records, report, logger)
	if len(admitted) == 0 {
		report.Status = models.RunStatusNoData
		return report, nil
	}

	// The catalog is read under the run lock, in the same transaction as the
	// write, so an overlapping run can never act on a stale snapshot. Each
	// attempt starts again from the admission counts.
	admission := report.Clone()
	err := retry.DoIfRetryable(ctx, s.cfg.Retry, func() error {
		return s.store.RunInTx(ctx, s.cfg.Lock, func(ctx context.Context, tx storage.WriteTx) error {
			*report = *admission.Clone()

			cat, err := s.catalogs.Load(ctx, tx)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			batch := NewReconciler(cat, started, logger).Apply(admitted, report)
			if batch.Empty() {
				logger.Info("Nothing to write")
				return nil
			}
			if _, err := s.writer.Write(ctx, tx, batch); err != nil {
				return fmt.Errorf("write batch: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return s.fail(report, logger, fmt.Errorf("reconcile: %w", err))
	}

	report.Status = models.RunStatusSuccess
	return report, nil
}

func (s *reconciliationService) fail(report *models.RunReport, logger *zap.Logger, err error) (*models.RunReport, error) {
	report.Status = models.RunStatusFailure
	report.Error = logging.SanitizeError(err)
	logger.Error("Run failed", zap.String("error", report.Error))
	return report, err
}

// Ensure reconciliationService implements ReconciliationService at compile time.
var _ ReconciliationService = (*reconciliationService)(nil)
