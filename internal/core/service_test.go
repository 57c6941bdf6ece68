package core_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/core/coretest"
)

var fixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	repo     *core.MemoryGrades
	launcher *coretest.FakeLauncher
	svc      *core.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     coretest.NewRepository(),
		launcher: coretest.NewFakeLauncher(),
	}
	h.svc = core.NewService(
		core.NewAggregator(h.repo, nil),
		core.NewColumnCatalog(10),
		h.launcher,
		core.ServiceOptions{Institution: "Test Institute", RenderConcurrency: 2, MaxStudents: 50},
	)
	h.svc.SetClock(func() time.Time { return fixedNow })
	return h
}

func (h *harness) assertReleased(t *testing.T) {
	t.Helper()
	assert.Zero(t, h.repo.Outstanding(), "repository reader leaked")
	assert.Zero(t, h.launcher.OpenEngines(), "render engine leaked")
}

// ============================================================================
// Combined PDF
// ============================================================================

func TestGenerate_CombinedPDF(t *testing.T) {
	h := newHarness(t)
	sink := &coretest.BufferSink{}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Name:       "Term Report",
		Format:     core.FormatPDF,
		StudentIDs: []string{coretest.Alice, "ghost", coretest.Bob},
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, core.StageStreamed, out.Stage)
	assert.True(t, out.Committed)
	assert.Equal(t, 2, out.Students)
	assert.Equal(t, []string{"ghost"}, out.Artifact.Omitted)
	assert.Equal(t, core.ContentTypePDF, sink.Artifact.ContentType)
	assert.Equal(t, "term_report_combined_1717243200000.pdf", sink.Artifact.FileName)
	assert.Equal(t, []string{"ghost"}, sink.Artifact.Omitted)
	assert.Equal(t, int64(sink.Buf.Len()), out.BytesWritten)
	assert.True(t, strings.HasPrefix(sink.Buf.String(), "%PDF"))

	engines := h.launcher.Engines()
	require.Len(t, engines, 1)
	markups := engines[0].Markups()
	require.Len(t, markups, 1)
	html := markups[0]
	assert.Equal(t, 2, strings.Count(html, `class="student-report-container"`))
	assert.Equal(t, 1, strings.Count(html, "page-break-after: always;"))
	assert.Less(t, strings.Index(html, "Alice Kumar"), strings.Index(html, "Bob &lt;Singh&gt;"))

	h.assertReleased(t)
}

func TestGenerate_CombinedRenderFailureBeforeCommit(t *testing.T) {
	h := newHarness(t)
	h.launcher.FailFor("Alice Kumar")
	sink := &coretest.BufferSink{}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		StudentIDs: []string{coretest.Alice, coretest.Bob},
	}, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRender)
	assert.False(t, out.Committed)
	assert.Equal(t, core.StageFailed, out.Stage)
	assert.Zero(t, sink.Begun)
	h.assertReleased(t)
}

// ============================================================================
// Individual bundle
// ============================================================================

func TestGenerate_IndividualBundle(t *testing.T) {
	h := newHarness(t)
	h.launcher.SetDelay(5 * time.Millisecond)
	sink := &coretest.BufferSink{}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		Mode:       core.ModeIndividual,
		StudentIDs: []string{coretest.Bob, coretest.Alice, coretest.Carol},
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, core.ContentTypeZIP, sink.Artifact.ContentType)
	assert.Equal(t, "student_reports_individual_1717243200000.zip", sink.Artifact.FileName)
	assert.Equal(t, 3, out.Students)
	assert.Empty(t, out.RenderOmitted)

	zr, err := zip.NewReader(bytes.NewReader(sink.Buf.Bytes()), int64(sink.Buf.Len()))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	assert.Equal(t, []string{
		"report_" + coretest.Bob + ".pdf",
		"report_" + coretest.Alice + ".pdf",
		"report_" + coretest.Carol + ".pdf",
	}, names, "entries follow request order")

	markups := h.launcher.Engines()[0].Markups()
	require.Len(t, markups, 3)
	for _, m := range markups {
		assert.Equal(t, 1, strings.Count(m, "page-break-after: always;"))
	}

	h.assertReleased(t)
}

func TestGenerate_IndividualBundleReproducibleNames(t *testing.T) {
	entries := func() []string {
		h := newHarness(t)
		sink := &coretest.BufferSink{}
		_, err := h.svc.Generate(context.Background(), core.ReportRequest{
			Format:     core.FormatPDF,
			Mode:       core.ModeIndividual,
			StudentIDs: []string{coretest.Alice, coretest.Bob},
		}, sink)
		require.NoError(t, err)

		zr, err := zip.NewReader(bytes.NewReader(sink.Buf.Bytes()), int64(sink.Buf.Len()))
		require.NoError(t, err)
		var names []string
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		return names
	}

	assert.Equal(t, entries(), entries())
}

func TestGenerate_IndividualRenderFailureIsOmitted(t *testing.T) {
	h := newHarness(t)
	h.launcher.FailFor("Alice Kumar")
	sink := &coretest.BufferSink{}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		Mode:       core.ModeIndividual,
		StudentIDs: []string{coretest.Alice, coretest.Bob},
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{coretest.Alice}, out.RenderOmitted)
	assert.Equal(t, 1, out.Students)

	zr, err := zip.NewReader(bytes.NewReader(sink.Buf.Bytes()), int64(sink.Buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "report_"+coretest.Bob+".pdf", zr.File[0].Name)
	h.assertReleased(t)
}

func TestGenerate_IndividualAllFailBeforeCommit(t *testing.T) {
	h := newHarness(t)
	h.launcher.FailFor("Academic Report")
	sink := &coretest.BufferSink{}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		Mode:       core.ModeIndividual,
		StudentIDs: []string{coretest.Alice, coretest.Bob},
	}, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoDocuments)
	assert.False(t, out.Committed)
	assert.Zero(t, sink.Begun)
	assert.ElementsMatch(t, []string{coretest.Alice, coretest.Bob}, out.RenderOmitted)
	h.assertReleased(t)
}

func TestGenerate_IndividualSinkFailureAfterCommit(t *testing.T) {
	h := newHarness(t)
	sink := &coretest.BufferSink{WriteErr: errors.New("client went away")}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		Mode:       core.ModeIndividual,
		StudentIDs: []string{coretest.Alice, coretest.Bob, coretest.Carol},
	}, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPackaging)
	assert.True(t, out.Committed)
	assert.Equal(t, 1, sink.Begun)
	h.assertReleased(t)
}

func TestGenerate_CancelStopsRendering(t *testing.T) {
	h := newHarness(t)
	h.launcher.SetDelay(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := h.svc.Generate(ctx, core.ReportRequest{
		Format:     core.FormatPDF,
		Mode:       core.ModeIndividual,
		StudentIDs: []string{coretest.Alice, coretest.Bob, coretest.Carol},
	}, &coretest.BufferSink{})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "renders should stop on cancellation")
	h.assertReleased(t)
}

// ============================================================================
// Workbook
// ============================================================================

func TestGenerate_Workbook(t *testing.T) {
	h := newHarness(t)
	sink := &coretest.BufferSink{}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Name:       "Batch 2021",
		Format:     core.FormatExcel,
		StudentIDs: []string{coretest.Alice, "ghost", coretest.Bob},
		Columns:    []string{"reg_no", "name", "cgpa", "semester2_sgpa", "nonsense"},
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, core.ContentTypeXLSX, sink.Artifact.ContentType)
	assert.Equal(t, "batch_2021_1717243200000.xlsx", sink.Artifact.FileName)
	assert.Equal(t, 2, out.Students)
	assert.Empty(t, h.launcher.Engines(), "workbooks never launch a browser")

	f, err := excelize.OpenReader(bytes.NewReader(sink.Buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(core.WorkbookSheet)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Registration No.", "Name", "Overall CGPA", "Semester 2 SGPA"}, rows[0])
	assert.Equal(t, []string{coretest.Alice, "Alice Kumar", "7.10", "6.00"}, rows[1])
	assert.Equal(t, []string{coretest.Bob, "Bob <Singh>", "10.00", "N/A"}, rows[2])
	h.assertReleased(t)
}

func TestGenerate_WorkbookUnknownColumnsFailBeforeAggregation(t *testing.T) {
	h := newHarness(t)
	h.repo.FailOn(coretest.Alice, errors.New("must not be read"))
	sink := &coretest.BufferSink{}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatExcel,
		StudentIDs: []string{coretest.Alice},
		Columns:    []string{"bogus"},
	}, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyColumnSet)
	assert.Equal(t, "VAL003", core.MapError(err).Code)
	assert.Equal(t, core.StageFailed, out.Stage)
	assert.Zero(t, sink.Begun)
}

// ============================================================================
// Failures before output
// ============================================================================

func TestGenerate_NoValidRecords(t *testing.T) {
	h := newHarness(t)
	sink := &coretest.BufferSink{}

	_, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		StudentIDs: []string{"nobody", "no-one"},
	}, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, err, core.ErrNoValidRecords)
	assert.Zero(t, sink.Begun)
	assert.Empty(t, h.launcher.Engines(), "no engine for an empty report")
	h.assertReleased(t)
}

func TestGenerate_ValidationErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		req  core.ReportRequest
	}{
		{"no students", core.ReportRequest{Format: core.FormatPDF}},
		{"bad format", core.ReportRequest{Format: "csv", StudentIDs: []string{coretest.Alice}}},
		{"too many", core.ReportRequest{Format: core.FormatPDF, StudentIDs: make([]string, 51)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &coretest.BufferSink{}
			out, err := h.svc.Generate(context.Background(), tt.req, sink)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Equal(t, "validation", core.KindName(err))
			assert.Equal(t, core.StageFailed, out.Stage)
			assert.Zero(t, sink.Begun)
		})
	}
}

func TestGenerate_RepositoryErrorIsFatal(t *testing.T) {
	h := newHarness(t)
	h.repo.FailOn(coretest.Bob, errors.New("connection reset"))

	_, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		StudentIDs: []string{coretest.Alice, coretest.Bob},
	}, &coretest.BufferSink{})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRepository)
	h.assertReleased(t)
}

func TestGenerate_SinkBeginFailure(t *testing.T) {
	h := newHarness(t)
	sink := &coretest.BufferSink{BeginErr: io.ErrClosedPipe}

	out, err := h.svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		StudentIDs: []string{coretest.Alice},
	}, sink)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPackaging)
	assert.False(t, out.Committed)
	h.assertReleased(t)
}

func TestGenerate_BusyRenderer(t *testing.T) {
	h := newHarness(t)
	limiter := core.NewRenderLimiter(1, 20*time.Millisecond)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	svc := core.NewService(core.NewAggregator(h.repo, nil), nil,
		core.NewLimitedLauncher(h.launcher, limiter), core.ServiceOptions{})

	_, err := svc.Generate(context.Background(), core.ReportRequest{
		Format:     core.FormatPDF,
		StudentIDs: []string{coretest.Alice},
	}, &coretest.BufferSink{})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTooManyRenders)
	assert.Equal(t, "RND002", core.MapError(err).Code)
}

func TestArtifactFileName(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	assert.Equal(t, "my_report__2024__individual_1700000000123.zip",
		core.ArtifactFileName("My Report (2024)", "student_reports", "_individual", ".zip", at))
	assert.Equal(t, "student_data_1700000000123.xlsx",
		core.ArtifactFileName("   ", "student_data", "", ".xlsx", at))
}
