package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/logging"
	"github.com/ekaya-inc/plantsync/pkg/models"
	"github.com/ekaya-inc/plantsync/pkg/validation"
)

// Reconciler makes every write decision for one run against one catalog.
// Records are processed strictly in input order; when two records need the
// same natural key, the first one decides how it is created.
type Reconciler struct {
	catalog  *catalog.Catalog
	batch    *models.Batch
	resolver *EntityResolver
	now      time.Time
	logger   *zap.Logger
}

// NewReconciler creates a reconciler. now stands in for recording_taken on
// records that do not carry one.
func NewReconciler(cat *catalog.Catalog, now time.Time, logger *zap.Logger) *Reconciler {
	batch := models.NewBatch()
	logger = logger.Named("reconciler")
	return &Reconciler{
		catalog:  cat,
		batch:    batch,
		resolver: NewEntityResolver(cat, batch, logger),
		now:      now,
		logger:   logger,
	}
}

// AdmittedRecord is a record that passed validation, with its input position.
type AdmittedRecord struct {
	Index  int
	Record *models.TelemetryRecord
}

// Admit validates records in input order. It needs no catalog, so a run can
// tell whether anything is worth locking the database for. Rejections and
// unparseable timestamps are counted on report.
func Admit(records []models.RawRecord, report *models.RunReport, logger *zap.Logger) []AdmittedRecord {
	admitted := make([]AdmittedRecord, 0, len(records))
	for i, raw := range records {
		report.Records++

		result := validation.Validate(raw)
		if result.Rejected {
			report.Rejected++
			report.AddReason(result.Reason)
			logger.Warn("Rejected record",
				zap.Int("record", i),
				zap.String("reason", string(result.Reason)))
			continue
		}
		report.Accepted++

		for _, issue := range result.Issues {
			if issue == models.ReasonInvalidTimestamp {
				report.AddReason(issue)
				logger.Info("Ignoring unparseable timestamp",
					zap.Int("record", i),
					zap.Int64("plant_id", int64(result.Record.PlantID)))
			}
		}
		admitted = append(admitted, AdmittedRecord{Index: i, Record: result.Record})
	}
	return admitted
}

// Reconcile validates and applies records in order and returns the
// accumulated batch. Record-level problems are counted on report; they never
// fail the run.
func (r *Reconciler) Reconcile(records []models.RawRecord, report *models.RunReport) *models.Batch {
	return r.Apply(Admit(records, report, r.logger), report)
}

// Apply makes the write decisions for already admitted records.
func (r *Reconciler) Apply(admitted []AdmittedRecord, report *models.RunReport) *models.Batch {
	for _, a := range admitted {
		r.process(a.Index, a.Record, report)
	}
	report.Queued = r.batch.Counts()
	return r.batch
}

func (r *Reconciler) process(index int, rec *models.TelemetryRecord, report *models.RunReport) {
	log := r.logger.With(zap.Int("record", index), zap.Int64("plant_id", int64(rec.PlantID)))
	if !r.reconcilePlant(rec, report, log) {
		if rec.HasReading() {
			report.AddReason(models.ReasonPlantNotCreated)
			log.Info("Skipping recording: plant was not created")
		}
		return
	}
	r.reconcileRecording(rec, report, log)
}

func (r *Reconciler) reconcilePlant(rec *models.TelemetryRecord, report *models.RunReport, log *zap.Logger) bool {
	known := r.catalog.KnownPlant(rec.PlantID)
	decision := DecidePlant(known, r.catalog.LastWatering(rec.PlantID), rec.LastWatered)

	switch decision.Action {
	case PlantInsert:
		reason, ok := r.resolver.ResolveNewPlant(rec)
		if !ok {
			report.AddReason(reason)
			log.Info("Skipping plant creation", zap.String("reason", string(reason)))
			return false
		}
	case PlantUpdate:
		at := *decision.LastWatering
		r.batch.SetWatering(rec.PlantID, at)
		r.catalog.SetLastWatering(rec.PlantID, at)
		log.Debug("Queued last_watering update", zap.Time("last_watering", at))
	case PlantNoop:
		if decision.Reason != "" {
			report.AddReason(decision.Reason)
			log.Info("Ignoring last_watered older than the current value",
				zap.Timep("incoming", rec.LastWatered),
				zap.Timep("current", decision.LastWatering))
		}
	}
	return true
}

func (r *Reconciler) reconcileRecording(rec *models.TelemetryRecord, report *models.RunReport, log *zap.Logger) {
	if !rec.HasReading() {
		report.AddReason(models.ReasonMissingReadings)
		log.Info("Skipping recording: no numeric reading")
		return
	}

	botanist := ResolveBotanist(r.catalog, r.batch, rec.PlantID, rec.Botanist)
	recording, reason, ok := BuildRecording(rec.PlantID, rec, botanist, r.now)
	if !ok {
		report.AddReason(reason)
		log.Info("Skipping recording", zap.String("reason", string(reason)))
		return
	}

	if botanist.Source == BotanistToCreate {
		log.Debug("Queued botanist creation", zap.String("email", logging.MaskEmail(rec.Botanist.Email)))
	}

	r.batch.Recordings = append(r.batch.Recordings, recording)
	r.catalog.SetRecentBotanist(rec.PlantID, recording.BotanistID)
	log.Debug("Queued recording",
		zap.String("botanist_source", botanist.Source.String()),
		zap.Int64("botanist_id", int64(recording.BotanistID)))
}
