package core

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// Branding is printed in every student section.
type Branding struct {
	Institution string
	GeneratedAt time.Time
}

// Fragment is the rendered markup of one student section.
type Fragment struct {
	StudentID string
	HTML      string
}

// PageBoundaryPolicy controls page breaks between student sections.
type PageBoundaryPolicy int

const (
	// PageCombined flows all sections into one document. Each section avoids
	// splitting across pages and all but the last force a break after them.
	PageCombined PageBoundaryPolicy = iota

	// PageStandalone renders a single section as its own document with a
	// forced break after its content.
	PageStandalone
)

const (
	breakAvoidInside = "page-break-inside: avoid;"
	breakAfter       = "page-break-after: always;"
)

// sectionStyle is the page-break style for section i of n under policy.
func sectionStyle(policy PageBoundaryPolicy, i, n int) templ.SafeCSS {
	if policy == PageStandalone {
		return breakAfter
	}
	if i < n-1 {
		return breakAvoidInside + " " + breakAfter
	}
	return breakAvoidInside
}

// RenderStudentSection renders rec's section to a markup fragment.
func RenderStudentSection(ctx context.Context, rec AggregatedRecord, brand Branding) (Fragment, error) {
	var buf bytes.Buffer
	if err := StudentSection(rec, brand).Render(ctx, &buf); err != nil {
		return Fragment{}, RenderError("render section", "student "+rec.Student.RegistrationNumber, err)
	}
	return Fragment{StudentID: rec.Student.RegistrationNumber, HTML: buf.String()}, nil
}

// DocumentMarkup renders the full page for fragments to a string.
func DocumentMarkup(ctx context.Context, fragments []Fragment, policy PageBoundaryPolicy) (string, error) {
	if len(fragments) == 0 {
		return "", RenderError("render document", "no sections to render", nil)
	}
	if policy == PageStandalone && len(fragments) != 1 {
		return "", RenderError("render document",
			fmt.Sprintf("standalone document takes one section, got %d", len(fragments)), nil)
	}

	var buf bytes.Buffer
	if err := DocumentPage(fragments, policy).Render(ctx, &buf); err != nil {
		return "", RenderError("render document", "write markup", err)
	}
	return buf.String(), nil
}

// RenderDocument prints fragments to PDF with engine. Any failure is fatal.
func RenderDocument(ctx context.Context, engine RenderEngine, fragments []Fragment, policy PageBoundaryPolicy) ([]byte, error) {
	markup, err := DocumentMarkup(ctx, fragments, policy)
	if err != nil {
		return nil, err
	}

	pdf, err := engine.PrintPDF(ctx, markup)
	if err != nil {
		return nil, RenderError("render document", "print pdf", err)
	}
	return pdf, nil
}

func currentSemesterText(n int) string {
	if n <= 0 {
		return NotApplicable
	}
	return strconv.Itoa(n)
}
