package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meridianhq/meridian/modules/core/domain/entities/blob"
	"github.com/meridianhq/meridian/modules/core/domain/entities/deletion"
	"github.com/meridianhq/meridian/modules/core/domain/entities/document"
	"github.com/meridianhq/meridian/pkg/eventbus"
	"github.com/meridianhq/meridian/pkg/metrics"
)

// CascadeOptions parameterize one cascade run. TargetUserID is resolved by
// the caller; the executor never derives identity itself.
type CascadeOptions struct {
	TargetUserID       uuid.UUID
	DeleteStorageFiles bool
	Initiator          deletion.Initiator
	Reason             string
}

// CascadeService walks every cascade-registered table in manifest order and
// applies the configured per-field strategies for one target user. Runs are
// idempotent: a second run over already-erased data finds no matching
// documents and reports zero records affected.
type CascadeService struct {
	manifest  *deletion.Manifest
	store     document.Store
	storage   blob.Storage
	reassign  deletion.ReassignPolicy
	publisher eventbus.EventBus
	logger    *logrus.Logger
}

type CascadeServiceOptions struct {
	Manifest  *deletion.Manifest
	Store     document.Store
	Storage   blob.Storage
	Reassign  deletion.ReassignPolicy
	Publisher eventbus.EventBus
	Logger    *logrus.Logger
}

func NewCascadeService(opts CascadeServiceOptions) *CascadeService {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CascadeService{
		manifest:  opts.Manifest,
		store:     opts.Store,
		storage:   opts.Storage,
		reassign:  opts.Reassign,
		publisher: opts.Publisher,
		logger:    logger,
	}
}

// Execute runs the full cascade. Failures never propagate as errors: every
// anticipated failure is folded into the Result so callers always receive a
// structured outcome. A table-level failure halts further table processing;
// a retried invocation re-scans from the top, which is safe because
// completed tables no longer match their index queries.
func (s *CascadeService) Execute(ctx context.Context, opts CascadeOptions) deletion.Result {
	start := time.Now()
	result := deletion.Result{
		Success:         true,
		TablesProcessed: []string{},
		FilesDeleted:    []string{},
	}

	log := s.logger.WithFields(logrus.Fields{
		"target_user": opts.TargetUserID,
		"initiator":   opts.Initiator,
		"reason":      opts.Reason,
	})

	for _, table := range s.manifest.CascadeTables() {
		// Disjointness is validated at manifest load; checked again so a
		// future manifest bug cannot touch a preserved table.
		if s.manifest.IsPreserved(table) {
			continue
		}
		if err := s.processTable(ctx, table, opts, log, &result); err != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("table %s: %v", table, err)
			log.WithError(err).WithField("table", table).Error("deletion cascade halted")
			break
		}
		result.TablesProcessed = append(result.TablesProcessed, table)
	}

	result.Duration = time.Since(start)

	metrics.RecordCascade(result)
	if s.publisher != nil {
		ev := deletion.NewCascadeCompletedEvent(ctx, opts.TargetUserID, opts.Initiator)
		ev.Result = result
		s.publisher.Publish(ev)
	}

	log.WithFields(logrus.Fields{
		"tables":     len(result.TablesProcessed),
		"deleted":    result.RecordsDeleted,
		"anonymized": result.RecordsAnonymized,
		"files":      len(result.FilesDeleted),
		"duration":   result.Duration,
		"success":    result.Success,
	}).Info("deletion cascade finished")

	return result
}

func (s *CascadeService) processTable(
	ctx context.Context,
	table string,
	opts CascadeOptions,
	log *logrus.Entry,
	result *deletion.Result,
) error {
	batchSize := s.manifest.BatchSize(table)
	indexName := s.manifest.IndexName(table)

	for {
		docs, err := s.store.QueryByUser(ctx, table, indexName, opts.TargetUserID, batchSize)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}

		progressed := false
		for _, doc := range docs {
			mutated, err := s.processDocument(ctx, table, doc, opts, log, result)
			if err != nil {
				return err
			}
			if mutated {
				progressed = true
			}
		}

		// Documents can keep matching the index when every applicable
		// strategy is a no-op (preserve, or reassign without a wired
		// policy). Without forward progress another fetch would return
		// the same batch forever.
		if !progressed {
			return nil
		}
	}
}

func (s *CascadeService) processDocument(
	ctx context.Context,
	table string,
	doc document.Document,
	opts CascadeOptions,
	log *logrus.Entry,
	result *deletion.Result,
) (bool, error) {
	if s.documentMarkedForDelete(table, doc, opts.TargetUserID) {
		// Files strictly before the document: deleting the document first
		// would leak blobs whose only reference was just removed.
		if opts.DeleteStorageFiles {
			s.sweepStorageFields(ctx, table, doc, log, result)
		}
		if err := s.store.Delete(ctx, table, doc.ID()); err != nil {
			return false, err
		}
		result.RecordsDeleted++
		return true, nil
	}

	patch := s.buildFieldPatch(ctx, table, doc, opts, log)
	if len(patch) == 0 {
		return false, nil
	}
	if err := s.store.Update(ctx, table, doc.ID(), patch); err != nil {
		return false, err
	}
	result.RecordsAnonymized++
	return true, nil
}

// documentMarkedForDelete applies the dominance rule: one delete-strategy
// field referencing the target removes the whole document, regardless of
// what the other fields are configured to do. Fields referencing other
// users never trigger removal.
func (s *CascadeService) documentMarkedForDelete(table string, doc document.Document, target uuid.UUID) bool {
	for field := range doc {
		strategy, ok := s.manifest.FieldStrategy(table, field)
		if !ok || strategy != deletion.StrategyDelete {
			continue
		}
		if value, _ := doc.StringField(field); value == target.String() {
			return true
		}
	}
	return false
}

// buildFieldPatch collects every field mutation for a surviving document.
// Fields without a manifest entry are preserved: unknown fields are never
// silently rewritten. Fields that do not currently reference the target
// user are left alone.
func (s *CascadeService) buildFieldPatch(
	ctx context.Context,
	table string,
	doc document.Document,
	opts CascadeOptions,
	log *logrus.Entry,
) map[string]any {
	patch := make(map[string]any)
	for field := range doc {
		strategy, ok := s.manifest.FieldStrategy(table, field)
		if !ok || strategy == deletion.StrategyPreserve {
			continue
		}
		value, _ := doc.StringField(field)
		if value != opts.TargetUserID.String() {
			continue
		}

		switch strategy {
		case deletion.StrategyAnonymize:
			patch[field] = deletion.AnonymizedValue
		case deletion.StrategyReassign:
			if s.reassign == nil {
				// Explicit no-op. Which account receives ownership is a
				// product decision; guessing a default target here would
				// silently move data to the wrong owner.
				log.WithFields(logrus.Fields{
					"table": table,
					"field": field,
				}).Warn("reassign strategy configured but no reassignment policy is wired; field left untouched")
				continue
			}
			target, err := s.reassign.ReassignTarget(ctx, table, field, opts.TargetUserID)
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"table": table,
					"field": field,
				}).Warn("reassignment policy failed; field left untouched")
				continue
			}
			patch[field] = target.String()
		}
	}
	return patch
}

// sweepStorageFields deletes every blob referenced by the document's
// configured storage fields. Blob failures are logged and non-fatal: an
// orphaned blob is recoverable by a separate sweep, while blocking account
// deletion on a storage hiccup is not acceptable.
func (s *CascadeService) sweepStorageFields(
	ctx context.Context,
	table string,
	doc document.Document,
	log *logrus.Entry,
	result *deletion.Result,
) {
	if s.storage == nil {
		return
	}
	for _, field := range s.manifest.StorageFields(table) {
		key, ok := doc.StringField(field)
		if !ok || key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"table":       table,
				"field":       field,
				"storage_key": key,
			}).Warn("failed to delete storage file")
			continue
		}
		result.FilesDeleted = append(result.FilesDeleted, key)
	}
}
