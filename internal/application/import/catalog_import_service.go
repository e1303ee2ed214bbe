package importapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
	csvimport "github.com/orgmap/backend/internal/infrastructure/import"
	"github.com/orgmap/backend/internal/infrastructure/logger"
	"github.com/orgmap/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Upload is a catalog file submitted for loading
type Upload struct {
	Entity         bulk.ImportEntityType
	FileName       string
	ContentType    string
	Data           []byte
	IdempotencyKey string
}

// UploadResult summarises a processed upload. Inserted counts store rows
// written, so a grade range row can contribute several. Skipped counts rows
// that wrote nothing new: blank cells, sentinel grades, repeats and names
// already stored.
type UploadResult struct {
	UploadID      uuid.UUID                 `json:"upload_id"`
	Entity        bulk.ImportEntityType     `json:"entity"`
	Status        bulk.ImportStatus         `json:"status"`
	TotalRows     int                       `json:"total_rows"`
	Inserted      int                       `json:"inserted"`
	Skipped       int                       `json:"skipped"`
	ErrorRows     int                       `json:"error_rows"`
	DroppedRows   int                       `json:"dropped_rows"`
	GradesCreated int                       `json:"grades_created,omitempty"`
	Errors        []csvimport.RowError      `json:"errors,omitempty"`
	Dropped       []organization.DroppedRow `json:"dropped,omitempty"`
	IsTruncated   bool                      `json:"is_truncated,omitempty"`
	TotalErrors   int                       `json:"total_errors,omitempty"`
	ArchiveKey    string                    `json:"archive_key,omitempty"`
}

// Options tune how uploads are processed
type Options struct {
	GradeCeiling        int
	MaxFileSize         int64
	MaxErrors           int
	CreateMissingGrades bool
	IdempotencyTTL      time.Duration
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		GradeCeiling:        organization.DefaultGradeCeiling,
		MaxFileSize:         10 << 20,
		MaxErrors:           1000,
		CreateMissingGrades: true,
		IdempotencyTTL:      24 * time.Hour,
	}
}

// ServiceOption configures optional collaborators of CatalogImportService
type ServiceOption func(*CatalogImportService)

// WithUploadGuard enables Idempotency-Key checks
func WithUploadGuard(guard shared.UploadGuard) ServiceOption {
	return func(s *CatalogImportService) {
		s.guard = guard
	}
}

// WithArchive stores every raw upload before it is processed
func WithArchive(archive UploadArchive) ServiceOption {
	return func(s *CatalogImportService) {
		s.archive = archive
	}
}

// WithMetrics records upload outcomes
func WithMetrics(metrics *telemetry.ImportMetrics) ServiceOption {
	return func(s *CatalogImportService) {
		s.metrics = metrics
	}
}

// WithClock overrides the time source used for created_at stamps
func WithClock(now func() time.Time) ServiceOption {
	return func(s *CatalogImportService) {
		s.now = now
	}
}

// CatalogImportService loads business units, job roles, grades and the
// job-role/grade mapping from uploaded files. Each upload runs in one store
// transaction.
type CatalogImportService struct {
	uow        organization.UnitOfWork
	history    *ImportHistoryService
	reconciler organization.Reconciler
	opts       Options
	guard      shared.UploadGuard
	archive    UploadArchive
	metrics    *telemetry.ImportMetrics
	now        func() time.Time
}

// NewCatalogImportService creates a new CatalogImportService
func NewCatalogImportService(
	uow organization.UnitOfWork,
	history *ImportHistoryService,
	opts Options,
	serviceOpts ...ServiceOption,
) *CatalogImportService {
	defaults := DefaultOptions()
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaults.MaxFileSize
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = defaults.MaxErrors
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = defaults.IdempotencyTTL
	}

	s := &CatalogImportService{
		uow:        uow,
		history:    history,
		reconciler: organization.NewReconciler(organization.NewGradeExpander(opts.GradeCeiling)),
		opts:       opts,
		now:        time.Now,
	}
	for _, opt := range serviceOpts {
		opt(s)
	}
	return s
}

// RequiredColumns returns the column headings an upload of entity must carry
func RequiredColumns(entity bulk.ImportEntityType) []string {
	switch entity {
	case bulk.ImportEntityBusinessUnits:
		return []string{csvimport.ColumnSBU}
	case bulk.ImportEntityJobRoles:
		return []string{csvimport.ColumnJobRole}
	case bulk.ImportEntityGrades:
		return []string{csvimport.ColumnGrade}
	case bulk.ImportEntityJobRoleGrades:
		return []string{csvimport.ColumnJobRole, csvimport.ColumnGrade}
	}
	return nil
}

// Import processes one upload. Unreadable files and missing columns are
// returned as csvimport input errors, a reused Idempotency-Key as
// shared.ErrDuplicateUpload and store failures as *PersistenceError. Row-level
// problems never fail the upload; they are reported in the result.
func (s *CatalogImportService) Import(ctx context.Context, upload Upload) (*UploadResult, error) {
	if !upload.Entity.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Invalid entity type: %s", upload.Entity))
	}
	if upload.FileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	format, err := csvimport.FormatFromFilename(upload.FileName)
	if err != nil {
		return nil, err
	}
	if int64(len(upload.Data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", csvimport.ErrFileTooLarge, len(upload.Data), s.opts.MaxFileSize)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "catalog_import", "Import",
		telemetry.WithAttribute(telemetry.SpanAttrEntityType, string(upload.Entity)),
		telemetry.WithAttribute(telemetry.SpanAttrFileName, upload.FileName),
	)
	defer span.End()

	start := s.now()
	log := logger.L(ctx).With(zap.String("entity", string(upload.Entity)), zap.String("file_name", upload.FileName))

	if err := s.claim(ctx, upload.IdempotencyKey); err != nil {
		if errors.Is(err, shared.ErrDuplicateUpload) {
			log.Warn("duplicate upload rejected", zap.String("idempotency_key", upload.IdempotencyKey))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	history, err := s.history.CreateHistory(ctx, upload.Entity, upload.FileName, int64(len(upload.Data)), upload.IdempotencyKey)
	if err != nil {
		s.release(ctx, upload.IdempotencyKey)
		err = &PersistenceError{Op: "create import history", Err: err}
		telemetry.RecordError(span, err)
		return nil, err
	}
	ctx = logger.WithUploadID(ctx, history.ID.String())
	telemetry.SetAttributes(span, telemetry.SpanAttrUploadID, history.ID.String())

	result, err := s.process(ctx, history, upload, format)
	if err != nil {
		s.release(ctx, upload.IdempotencyKey)
		s.fail(ctx, history, err)
		s.metrics.ObserveUpload(telemetry.UploadObservation{
			Entity:  string(upload.Entity),
			Status:  string(bulk.ImportStatusFailed),
			Elapsed: s.now().Sub(start),
		})
		telemetry.RecordError(span, err)
		logger.L(ctx).Error("catalog upload failed", zap.String("entity", string(upload.Entity)), zap.Error(err))
		return nil, err
	}

	s.metrics.ObserveUpload(telemetry.UploadObservation{
		Entity:   string(upload.Entity),
		Status:   string(result.Status),
		Inserted: result.Inserted,
		Skipped:  result.Skipped,
		Errors:   result.ErrorRows,
		Dropped:  result.DroppedRows,
		Elapsed:  s.now().Sub(start),
	})
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTotalRows, result.TotalRows,
		telemetry.SpanAttrInsertedRows, result.Inserted,
		telemetry.SpanAttrErrorRows, result.ErrorRows,
		telemetry.SpanAttrDroppedRows, result.DroppedRows,
	)
	logger.L(ctx).Info("catalog upload processed",
		zap.String("entity", string(upload.Entity)),
		zap.String("status", string(result.Status)),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
		zap.Int("error_rows", result.ErrorRows),
		zap.Int("dropped_rows", result.DroppedRows),
	)
	return result, nil
}

// outcome is what one of the loaders did
type outcome struct {
	counts        bulk.ImportCounts
	errors        *csvimport.ErrorCollection
	dropped       []organization.DroppedRow
	gradesCreated int
}

func (s *CatalogImportService) process(
	ctx context.Context,
	history *bulk.ImportHistory,
	upload Upload,
	format csvimport.Format,
) (*UploadResult, error) {
	if s.archive != nil {
		key, err := s.archive.Archive(ctx, ArchiveObject{
			UploadID:    history.ID,
			Entity:      upload.Entity,
			FileName:    upload.FileName,
			ContentType: upload.ContentType,
			Data:        upload.Data,
		})
		if err != nil {
			logger.L(ctx).Warn("raw upload not archived", zap.Error(err))
		} else if key != "" {
			history.SetArchiveKey(key)
		}
	}

	table, err := csvimport.ReadTable(bytes.NewReader(upload.Data), format, RequiredColumns(upload.Entity)...)
	if err != nil {
		return nil, err
	}

	if err := history.StartProcessing(len(table.Rows)); err != nil {
		return nil, err
	}
	if err := s.history.Save(ctx, history); err != nil {
		return nil, &PersistenceError{Op: "update import history", Err: err}
	}

	var out *outcome
	switch upload.Entity {
	case bulk.ImportEntityBusinessUnits:
		out, err = s.loadNames(ctx, organization.CatalogBusinessUnits, csvimport.ColumnSBU, table)
	case bulk.ImportEntityJobRoles:
		out, err = s.loadNames(ctx, organization.CatalogJobRoles, csvimport.ColumnJobRole, table)
	case bulk.ImportEntityGrades:
		out, err = s.loadGrades(ctx, table)
	case bulk.ImportEntityJobRoleGrades:
		out, err = s.loadMappings(ctx, table)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveGradeParseErrors(string(upload.Entity), out.counts.ErrorRows)

	if err := s.history.CompleteImport(ctx, history, out.counts, out.errors.Errors(), out.dropped); err != nil {
		return nil, &PersistenceError{Op: "complete import history", Err: err}
	}

	result := &UploadResult{
		UploadID:      history.ID,
		Entity:        upload.Entity,
		Status:        history.Status,
		TotalRows:     out.counts.TotalRows,
		Inserted:      out.counts.InsertedRows,
		Skipped:       out.counts.SkippedRows,
		ErrorRows:     out.counts.ErrorRows,
		DroppedRows:   out.counts.DroppedRows,
		GradesCreated: out.gradesCreated,
		Errors:        out.errors.Errors(),
		Dropped:       out.dropped,
		ArchiveKey:    history.ArchiveKey,
	}
	if out.errors.IsTruncated() {
		result.IsTruncated = true
		result.TotalErrors = out.errors.TotalCount()
	}
	return result, nil
}

// loadNames inserts the distinct names of column that are not stored yet
func (s *CatalogImportService) loadNames(
	ctx context.Context,
	catalog organization.Catalog,
	column string,
	table *csvimport.Table,
) (*outcome, error) {
	names := table.Column(column)

	var (
		newNames organization.NameSet
		inserted int64
	)
	err := s.uow.Do(ctx, func(ctx context.Context, repo organization.Repository) error {
		existing, err := repo.ExistingNames(ctx, catalog)
		if err != nil {
			return err
		}
		newNames = s.reconciler.NewNames(existing, names)
		inserted, err = repo.InsertNames(ctx, catalog, newNames.Sorted(), s.now())
		return err
	})
	if err != nil {
		return nil, &PersistenceError{Op: fmt.Sprintf("load %s", catalog), Err: err}
	}

	contributing := 0
	claimed := organization.NewNameSet()
	for _, raw := range names {
		name := organization.CleanName(raw)
		if newNames.Has(name) && !claimed.Has(name) {
			claimed.Add(name)
			contributing++
		}
	}

	return &outcome{
		counts: bulk.ImportCounts{
			TotalRows:    len(table.Rows),
			InsertedRows: int(inserted),
			SkippedRows:  len(table.Rows) - contributing,
		},
		errors: csvimport.NewErrorCollection(s.opts.MaxErrors),
	}, nil
}

// loadGrades expands every grade notation and inserts the grades not stored yet
func (s *CatalogImportService) loadGrades(ctx context.Context, table *csvimport.Table) (*outcome, error) {
	rows := make([]organization.GradeRow, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = organization.GradeRow{Line: row.LineNumber, Notation: row.Get(csvimport.ColumnGrade)}
	}

	var (
		plan     organization.GradePlan
		inserted int64
	)
	err := s.uow.Do(ctx, func(ctx context.Context, repo organization.Repository) error {
		existing, err := repo.ExistingNames(ctx, organization.CatalogGrades)
		if err != nil {
			return err
		}
		plan = s.reconciler.NewGrades(existing, rows)
		inserted, err = repo.InsertNames(ctx, organization.CatalogGrades, plan.New.Sorted(), s.now())
		return err
	})
	if err != nil {
		return nil, &PersistenceError{Op: "load grades", Err: err}
	}

	errs := s.collectFailures(ctx, plan.Failures)
	return &outcome{
		counts: bulk.ImportCounts{
			TotalRows:    len(table.Rows),
			InsertedRows: int(inserted),
			SkippedRows:  len(table.Rows) - len(plan.Failures) - plan.Contributing,
			ErrorRows:    len(plan.Failures),
		},
		errors: errs,
	}, nil
}

// loadMappings links job roles to the grades their notation expands to.
// Grades named by the file are created first when CreateMissingGrades is set.
func (s *CatalogImportService) loadMappings(ctx context.Context, table *csvimport.Table) (*outcome, error) {
	rows := make([]organization.MappingRow, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = organization.MappingRow{
			Line:     row.LineNumber,
			JobRole:  row.Get(csvimport.ColumnJobRole),
			Notation: row.Get(csvimport.ColumnGrade),
		}
	}

	var (
		plan          organization.AssociationPlan
		inserted      int64
		gradesCreated int64
	)
	err := s.uow.Do(ctx, func(ctx context.Context, repo organization.Repository) error {
		createdAt := s.now()

		if s.opts.CreateMissingGrades {
			existing, err := repo.ExistingNames(ctx, organization.CatalogGrades)
			if err != nil {
				return err
			}
			gradePlan := s.reconciler.NewGrades(existing, organization.MappingGrades(rows))
			if gradesCreated, err = repo.InsertNames(ctx, organization.CatalogGrades, gradePlan.New.Sorted(), createdAt); err != nil {
				return err
			}
		}

		jobRoles, err := repo.IDIndex(ctx, organization.CatalogJobRoles)
		if err != nil {
			return err
		}
		grades, err := repo.IDIndex(ctx, organization.CatalogGrades)
		if err != nil {
			return err
		}

		plan = s.reconciler.Associations(jobRoles, grades, rows)
		inserted, err = repo.InsertAssociations(ctx, plan.Pairs, createdAt)
		return err
	})
	if err != nil {
		return nil, &PersistenceError{Op: "load job role grades", Err: err}
	}

	dropped := make([]organization.DroppedRow, 0, len(plan.Dropped))
	byReason := make(map[organization.DropReason]int)
	for _, d := range plan.Dropped {
		if d.Reason == organization.DropUnparsedGrade {
			continue
		}
		dropped = append(dropped, d)
		byReason[d.Reason]++
	}
	if len(dropped) > 0 {
		logger.L(ctx).Warn("mapping rows dropped",
			zap.Int("dropped", len(dropped)),
			zap.Int(string(organization.DropUnknownJobRole), byReason[organization.DropUnknownJobRole]),
			zap.Int(string(organization.DropUnknownGrade), byReason[organization.DropUnknownGrade]),
		)
	}

	errs := s.collectFailures(ctx, plan.Failures)
	return &outcome{
		counts: bulk.ImportCounts{
			TotalRows:    len(table.Rows),
			InsertedRows: int(inserted),
			SkippedRows:  len(table.Rows) - len(plan.Failures) - plan.Resolved,
			ErrorRows:    len(plan.Failures),
			DroppedRows:  len(dropped),
		},
		errors:        errs,
		dropped:       dropped,
		gradesCreated: int(gradesCreated),
	}, nil
}

func (s *CatalogImportService) collectFailures(ctx context.Context, failures []organization.RowFailure) *csvimport.ErrorCollection {
	errs := csvimport.NewErrorCollection(s.opts.MaxErrors)
	for _, f := range failures {
		errs.AddGradeParseError(f.Line, csvimport.ColumnGrade, f.Error.Notation, f.Error.Reason)
	}
	if errs.HasErrors() {
		logger.L(ctx).Warn("grade notations skipped", zap.Int("rows", errs.TotalCount()))
	}
	return errs
}

func (s *CatalogImportService) claim(ctx context.Context, key string) error {
	if key == "" || s.guard == nil {
		return nil
	}
	ok, err := s.guard.Claim(ctx, key, s.opts.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !ok {
		s.metrics.ObserveDuplicateUpload()
		return shared.ErrDuplicateUpload
	}
	return nil
}

// release frees the key of a failed upload so the client can retry it
func (s *CatalogImportService) release(ctx context.Context, key string) {
	if key == "" || s.guard == nil {
		return
	}
	if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
		logger.L(ctx).Warn("failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
	}
}

func (s *CatalogImportService) fail(ctx context.Context, history *bulk.ImportHistory, cause error) {
	code := ErrCodeImportPersistence
	if csvimport.IsInputError(cause) {
		code = csvimport.ErrorCode(cause)
	}
	rowErr := csvimport.RowError{Row: 0, Code: code, Message: cause.Error()}
	if err := s.history.FailImport(context.WithoutCancel(ctx), history, []csvimport.RowError{rowErr}); err != nil {
		logger.L(ctx).Error("failed to record failed import", zap.Error(err))
	}
}
