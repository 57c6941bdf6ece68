package core

import "time"

// GradeStatus is the pass/fail outcome of a single subject.
type GradeStatus string

const (
	StatusPass GradeStatus = "Pass"
	StatusFail GradeStatus = "Fail"
)

// NotApplicable is displayed wherever a value does not exist for a student.
const NotApplicable = "N/A"

// SubjectGrade is one course result as stored by the registrar.
type SubjectGrade struct {
	Code    string `json:"subject_code"`
	Name    string `json:"subject_name"`
	Grade   string `json:"grade"`
	Credits int    `json:"credits"`
}

// SubjectOutcome is a SubjectGrade with its derived grade point and status.
type SubjectOutcome struct {
	SubjectGrade
	Point  float64     `json:"grade_point"`
	Status GradeStatus `json:"status"`
}

// SemesterSummary holds the subjects and metrics for one semester.
type SemesterSummary struct {
	Number           int              `json:"semester"`
	Subjects         []SubjectOutcome `json:"subjects"`
	SGPA             float64          `json:"sgpa"`
	CreditsAttempted int              `json:"total_credits"`
	CreditsEarned    int              `json:"credits_obtained"`

	// WeightedPoints is the sum of point*credits; CGPA is computed from these
	// rather than from the rounded SGPA values.
	WeightedPoints float64 `json:"-"`
}

// StudentIdentity is the descriptive part of a student record.
type StudentIdentity struct {
	RegistrationNumber string `json:"registration_number"`
	Name               string `json:"name"`
	Address            string `json:"address"`
	Branch             string `json:"branch"`
	CurrentSemester    int    `json:"current_semester"`
}

// AggregatedRecord is the read-only academic summary of one requested student.
// When the student could not be resolved, Error is set, Semesters is empty
// and CGPA is 0.
type AggregatedRecord struct {
	Student   StudentIdentity   `json:"student"`
	Semesters []SemesterSummary `json:"semesters"`
	CGPA      float64           `json:"cgpa"`
	Error     string            `json:"error,omitempty"`
}

// Valid reports whether the record can be rendered.
func (r AggregatedRecord) Valid() bool {
	return r.Error == ""
}

// Semester returns the summary for semester n, if the student has one.
func (r AggregatedRecord) Semester(n int) (SemesterSummary, bool) {
	for _, s := range r.Semesters {
		if s.Number == n {
			return s, true
		}
	}
	return SemesterSummary{}, false
}

// GradeRow is a raw repository row: one subject result in one semester.
type GradeRow struct {
	Semester int `json:"semester"`
	SubjectGrade
}

// Format is the requested output encoding.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
)

// PackagingMode selects how multi-student documents are delivered.
type PackagingMode string

const (
	ModeCombined   PackagingMode = "combined"
	ModeIndividual PackagingMode = "individual"
)

// ReportRequest is a validated-on-entry request for one report.
type ReportRequest struct {
	Name       string         `json:"name" validate:"max=200"`
	Type       string         `json:"type" validate:"max=50"`
	Format     Format         `json:"format" validate:"required,oneof=pdf excel"`
	StudentIDs []string       `json:"student_ids" validate:"required,min=1,dive,required,max=64"`
	Mode       PackagingMode  `json:"mode" validate:"omitempty,oneof=combined individual"`
	Columns    []string       `json:"columns"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Artifact describes the byte stream handed to a Sink.
type Artifact struct {
	ContentType string
	FileName    string

	// Omitted lists requested identifiers that resolved to no student.
	Omitted []string
}

// Content types of produced artifacts.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeZIP  = "application/zip"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Stage is a step of a report's generation.
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidated  Stage = "validated"
	StageAggregated Stage = "aggregated"
	StageRendered   Stage = "rendered"
	StageStreamed   Stage = "streamed"
	StageFailed     Stage = "failed"
)

// Outcome summarizes one Generate call, successful or not.
type Outcome struct {
	ReportID string
	Stage    Stage
	Artifact Artifact

	// Students is the number of records that made it into the artifact.
	Students int

	// RenderOmitted lists students whose individual document failed to render.
	RenderOmitted []string

	BytesWritten int64

	// Committed is true once the sink has been opened. After that, errors
	// can no longer be reported as a clean response.
	Committed bool

	StartedAt  time.Time
	FinishedAt time.Time
}
