package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// GradeScale maps grade symbols to grade points and decides pass/fail.
// It is immutable after construction and safe for concurrent use.
//
// Symbols are matched case-insensitively. A symbol missing from the scale is
// worth 0 points but still passes unless it is listed as failing.
type GradeScale struct {
	points  map[string]float64
	failing map[string]bool
}

// GradeScaleEntry is one row of a scale, for listing.
type GradeScaleEntry struct {
	Symbol  string  `json:"symbol"`
	Point   float64 `json:"point"`
	Failing bool    `json:"failing"`
}

// gradeScaleFile is the on-disk TOML layout:
//
//	failing = ["F", "ABSENT"]
//
//	[points]
//	O = 10
//	"A+" = 9
type gradeScaleFile struct {
	Failing []string           `toml:"failing"`
	Points  map[string]float64 `toml:"points"`
}

var defaultPoints = map[string]float64{
	"O":      10,
	"A+":     9,
	"A":      8,
	"B+":     7,
	"B":      6,
	"C":      5,
	"P":      4,
	"F":      0,
	"ABSENT": 0,
	"COMPLE": 10,
}

var defaultFailing = []string{"F", "ABSENT"}

// DefaultGradeScale returns the ten-point scale used when no file is configured.
func DefaultGradeScale() *GradeScale {
	scale, _ := NewGradeScale(defaultPoints, defaultFailing)
	return scale
}

// NewGradeScale builds a scale from a symbol table and a failing set.
// Symbols are normalized to upper case; duplicates after normalization and
// negative points are rejected.
func NewGradeScale(points map[string]float64, failing []string) (*GradeScale, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("grade scale has no symbols")
	}

	s := &GradeScale{
		points:  make(map[string]float64, len(points)),
		failing: make(map[string]bool, len(failing)),
	}

	for sym, pt := range points {
		key := normalizeSymbol(sym)
		if key == "" {
			return nil, fmt.Errorf("grade scale has an empty symbol")
		}
		if pt < 0 {
			return nil, fmt.Errorf("grade %q has negative point %v", sym, pt)
		}
		if _, dup := s.points[key]; dup {
			return nil, fmt.Errorf("grade %q is defined twice", key)
		}
		s.points[key] = pt
	}

	for _, sym := range failing {
		s.failing[normalizeSymbol(sym)] = true
	}

	return s, nil
}

// LoadGradeScale reads a TOML grade scale file.
func LoadGradeScale(path string) (*GradeScale, error) {
	var f gradeScaleFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode grade scale %s: %w", path, err)
	}
	if f.Failing == nil {
		f.Failing = defaultFailing
	}
	scale, err := NewGradeScale(f.Points, f.Failing)
	if err != nil {
		return nil, fmt.Errorf("grade scale %s: %w", path, err)
	}
	return scale, nil
}

// Point returns the grade point for symbol, or 0 if it is not on the scale.
func (s *GradeScale) Point(symbol string) float64 {
	return s.points[normalizeSymbol(symbol)]
}

// Status returns Fail for symbols in the failing set and Pass otherwise.
func (s *GradeScale) Status(symbol string) GradeStatus {
	if s.failing[normalizeSymbol(symbol)] {
		return StatusFail
	}
	return StatusPass
}

// Known reports whether symbol is on the scale.
func (s *GradeScale) Known(symbol string) bool {
	_, ok := s.points[normalizeSymbol(symbol)]
	return ok
}

// Entries lists the scale ordered by point descending, then symbol.
func (s *GradeScale) Entries() []GradeScaleEntry {
	entries := make([]GradeScaleEntry, 0, len(s.points))
	for sym, pt := range s.points {
		entries = append(entries, GradeScaleEntry{Symbol: sym, Point: pt, Failing: s.failing[sym]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Point != entries[j].Point {
			return entries[i].Point > entries[j].Point
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	return entries
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
