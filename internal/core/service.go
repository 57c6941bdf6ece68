package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/gradereports/internal/logging"
)

// DefaultRenderConcurrency is how many students render in parallel per bundle.
const DefaultRenderConcurrency = 4

// Sink receives the single byte stream of a report.
//
// Begin is the commit point: it is called at most once, only after every
// check that can fail cleanly has passed, and the returned writer receives
// the artifact bytes. Until Begin is called nothing has been written.
type Sink interface {
	Begin(a Artifact) (io.Writer, error)
}

// ServiceOptions configures the orchestrator.
type ServiceOptions struct {
	Institution       string
	RenderConcurrency int
	MaxStudents       int

	// RenderTimeout bounds each PDF print. Zero means no bound beyond ctx.
	RenderTimeout time.Duration
}

// Service is the report orchestrator. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	aggregator *Aggregator
	catalog    *ColumnCatalog
	launcher   EngineLauncher
	opts       ServiceOptions

	now   func() time.Time
	newID func() string
}

// NewService creates a Service.
func NewService(aggregator *Aggregator, catalog *ColumnCatalog, launcher EngineLauncher, opts ServiceOptions) *Service {
	if opts.RenderConcurrency <= 0 {
		opts.RenderConcurrency = DefaultRenderConcurrency
	}
	if catalog == nil {
		catalog = NewColumnCatalog(DefaultMaxSemesters)
	}
	return &Service{
		aggregator: aggregator,
		catalog:    catalog,
		launcher:   launcher,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetClock replaces the clock used for file names and branding.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Catalog returns the workbook column catalog.
func (s *Service) Catalog() *ColumnCatalog {
	return s.catalog
}

// Scale returns the grade scale used for aggregation.
func (s *Service) Scale() *GradeScale {
	return s.aggregator.Scale()
}

// Generate runs one report through Validated, Aggregated, Rendered and
// Streamed, writing the artifact to sink.
//
// The returned Outcome is meaningful even on error. When Outcome.Committed
// is false the error can be reported to the caller cleanly; when it is true
// bytes have already reached the sink and the error can only be logged.
func (s *Service) Generate(ctx context.Context, req ReportRequest, sink Sink) (Outcome, error) {
	out := Outcome{
		ReportID:  s.newID(),
		Stage:     StageReceived,
		StartedAt: s.now(),
	}

	NormalizeRequest(&req)
	log := logging.ForReport(ctx, out.ReportID, string(req.Format))

	fail := func(err error) (Outcome, error) {
		out.Stage = StageFailed
		out.FinishedAt = s.now()
		if out.Committed {
			log.Error("report stream failed after commit",
				"error", err,
				"bytes_written", out.BytesWritten,
			)
		} else {
			log.Warn("report failed", "error", err)
		}
		return out, err
	}

	// Validated
	if err := ValidateRequest(req, s.opts.MaxStudents); err != nil {
		return fail(err)
	}
	var columns []ColumnDefinition
	if req.Format == FormatExcel {
		columns = s.catalog.Resolve(req.Columns)
		if len(columns) == 0 {
			return fail(ValidationError("resolve columns", "empty column set", ErrEmptyColumnSet).
				WithDetail("none of %d requested columns is recognized", len(req.Columns)))
		}
	}
	out.Stage = StageValidated

	// Aggregated
	records, err := s.aggregator.Aggregate(ctx, req.StudentIDs)
	if err != nil {
		return fail(err)
	}
	valid, missing := partitionRecords(records)
	for _, id := range missing {
		log.Warn("student not found", "student_id", id)
	}
	out.Artifact.Omitted = missing
	if len(valid) == 0 {
		return fail(NotFoundError("generate", "no valid student records", ErrNoValidRecords).
			WithDetail("none of %d requested students were found", len(req.StudentIDs)))
	}
	out.Stage = StageAggregated
	out.Students = len(valid)

	log.Info("report aggregated",
		"requested", len(req.StudentIDs),
		"valid", len(valid),
		"missing", len(missing),
	)

	switch {
	case req.Format == FormatExcel:
		err = s.streamWorkbook(ctx, &out, req, records, columns, sink)
	case req.Mode == ModeIndividual:
		err = s.streamBundle(ctx, &out, req, valid, sink, log)
	default:
		err = s.streamCombined(ctx, &out, req, valid, sink)
	}
	if err != nil {
		return fail(err)
	}

	out.Stage = StageStreamed
	out.FinishedAt = s.now()
	log.Info("report streamed",
		"file_name", out.Artifact.FileName,
		"students", out.Students,
		"render_omitted", len(out.RenderOmitted),
		"bytes_written", out.BytesWritten,
		"duration_ms", out.FinishedAt.Sub(out.StartedAt).Milliseconds(),
	)
	return out, nil
}

// commit opens the sink and returns a counting writer over it.
func (s *Service) commit(out *Outcome, sink Sink, a Artifact) (*CountingWriter, error) {
	a.Omitted = out.Artifact.Omitted
	w, err := sink.Begin(a)
	if err != nil {
		return nil, PackagingError("commit", "open output", err)
	}
	out.Artifact = a
	out.Committed = true
	return NewCountingWriter(w), nil
}

func (s *Service) streamWorkbook(ctx context.Context, out *Outcome, req ReportRequest, records []AggregatedRecord, columns []ColumnDefinition, sink Sink) error {
	var buf bytes.Buffer
	result, err := BuildWorkbook(&buf, records, columns)
	if err != nil {
		return err
	}
	out.Students = result.Rows
	out.Stage = StageRendered

	cw, err := s.commit(out, sink, Artifact{
		ContentType: ContentTypeXLSX,
		FileName:    ArtifactFileName(req.Name, "student_data", "", ".xlsx", out.StartedAt),
	})
	if err != nil {
		return err
	}
	err = ChunkedCopy(ctx, cw, buf.Bytes())
	out.BytesWritten = cw.BytesWritten
	if err != nil {
		return PackagingError("stream workbook", "write output", err)
	}
	return nil
}

func (s *Service) streamCombined(ctx context.Context, out *Outcome, req ReportRequest, valid []AggregatedRecord, sink Sink) error {
	brand := s.branding(out.StartedAt)

	fragments := make([]Fragment, 0, len(valid))
	for _, rec := range valid {
		frag, err := RenderStudentSection(ctx, rec, brand)
		if err != nil {
			return err
		}
		fragments = append(fragments, frag)
	}

	engine, err := s.launch(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	printCtx, cancel := s.printContext(ctx)
	pdf, err := RenderDocument(printCtx, engine, fragments, PageCombined)
	cancel()
	if err != nil {
		return err
	}
	out.Stage = StageRendered

	cw, err := s.commit(out, sink, Artifact{
		ContentType: ContentTypePDF,
		FileName:    ArtifactFileName(req.Name, "student_reports", "_combined", ".pdf", out.StartedAt),
	})
	if err != nil {
		return err
	}
	err = ChunkedCopy(ctx, cw, pdf)
	out.BytesWritten = cw.BytesWritten
	if err != nil {
		return PackagingError("stream document", "write output", err)
	}
	return nil
}

func (s *Service) streamBundle(ctx context.Context, out *Outcome, req ReportRequest, valid []AggregatedRecord, sink Sink, log *slog.Logger) error {
	engine, err := s.launch(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	brand := s.branding(out.StartedAt)
	docs, done := s.renderEach(renderCtx, engine, valid, brand)

	var cw *CountingWriter
	open := func() (io.Writer, error) {
		out.Stage = StageRendered
		w, err := s.commit(out, sink, Artifact{
			ContentType: ContentTypeZIP,
			FileName:    ArtifactFileName(req.Name, "student_reports", "_individual", ".zip", out.StartedAt),
		})
		if err != nil {
			return nil, err
		}
		cw = w
		return w, nil
	}
	onOmit := func(doc NamedDocument) {
		log.Warn("student document omitted", "student_id", doc.StudentID, "error", doc.Err)
	}

	result, err := PackageDocuments(renderCtx, docs, out.StartedAt, open, onOmit)

	// Stop any render still running and wait before the engine is closed.
	cancel()
	<-done

	out.RenderOmitted = result.Omitted
	out.Students = len(result.Entries)
	if cw != nil {
		out.BytesWritten = cw.BytesWritten
	}
	return err
}

// renderEach renders every record as a standalone PDF with bounded
// parallelism. Documents are emitted on the returned channel in record
// order regardless of completion order. done closes once every render has
// returned.
func (s *Service) renderEach(ctx context.Context, engine RenderEngine, records []AggregatedRecord, brand Branding) (<-chan NamedDocument, <-chan struct{}) {
	slots := make([]chan NamedDocument, len(records))
	for i := range slots {
		slots[i] = make(chan NamedDocument, 1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(s.opts.RenderConcurrency)
		for i, rec := range records {
			g.Go(func() error {
				slots[i] <- s.renderStandalone(ctx, engine, rec, brand)
				return nil
			})
		}
		_ = g.Wait()
	}()

	ordered := make(chan NamedDocument)
	go func() {
		defer close(ordered)
		for _, slot := range slots {
			select {
			case doc := <-slot:
				select {
				case ordered <- doc:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return ordered, done
}

func (s *Service) renderStandalone(ctx context.Context, engine RenderEngine, rec AggregatedRecord, brand Branding) NamedDocument {
	id := rec.Student.RegistrationNumber
	doc := NamedDocument{StudentID: id, Name: EntryName(id)}

	if err := ctx.Err(); err != nil {
		doc.Err = err
		return doc
	}

	frag, err := RenderStudentSection(ctx, rec, brand)
	if err != nil {
		doc.Err = err
		return doc
	}

	printCtx, cancel := s.printContext(ctx)
	defer cancel()
	doc.Data, doc.Err = RenderDocument(printCtx, engine, []Fragment{frag}, PageStandalone)
	return doc
}

func (s *Service) launch(ctx context.Context) (RenderEngine, error) {
	engine, err := s.launcher.Launch(ctx)
	if err == nil {
		return engine, nil
	}
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return nil, err
	}
	return nil, RenderError("launch engine", "start render engine", err)
}

func (s *Service) printContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RenderTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.RenderTimeout)
}

func (s *Service) branding(at time.Time) Branding {
	return Branding{Institution: s.opts.Institution, GeneratedAt: at}
}

func partitionRecords(records []AggregatedRecord) (valid []AggregatedRecord, missing []string) {
	for _, r := range records {
		if r.Valid() {
			valid = append(valid, r)
		} else {
			missing = append(missing, r.Student.RegistrationNumber)
		}
	}
	return valid, missing
}

// ArtifactFileName builds "<name><suffix>_<unix ms><ext>". The name is
// lower-cased with every character outside [a-z0-9] replaced by '_'; an
// empty name uses fallback.
func ArtifactFileName(name, fallback, suffix, ext string, at time.Time) string {
	base := SanitizeFileName(name)
	if base == "" {
		base = fallback
	}
	return fmt.Sprintf("%s%s_%d%s", base, suffix, at.UnixMilli(), ext)
}

// SanitizeFileName lower-cases s and replaces non-alphanumerics with '_'.
func SanitizeFileName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
