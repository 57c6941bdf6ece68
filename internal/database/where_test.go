package database

import (
	"testing"
	"time"
)

// ============================================================================
// WhereBuilder Tests
// ============================================================================

func TestWhereBuilder_Build_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	whereClause, args := wb.Build()

	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}
	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
	if wb.NextArgIndex() != 1 {
		t.Errorf("expected next arg index 1, got %d", wb.NextArgIndex())
	}
}

func TestWhereBuilder_Add(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("created_by", "fac-1")
	wb.Add("format", "")
	wb.Add("type", "batch")

	whereClause, args := wb.Build()

	expectedClause := " WHERE created_by = $1 AND type = $2"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if args[0] != "fac-1" || args[1] != "batch" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestWhereBuilder_AddTimestampRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		from, to   time.Time
		wantClause string
		wantArgs   int
	}{
		{"both bounds", from, to, " WHERE created_at >= $1 AND created_at <= $2", 2},
		{"from only", from, time.Time{}, " WHERE created_at >= $1", 1},
		{"to only", time.Time{}, to, " WHERE created_at <= $1", 1},
		{"neither", time.Time{}, time.Time{}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddTimestampRange("created_at", tt.from, tt.to)
			whereClause, args := wb.Build()

			if whereClause != tt.wantClause {
				t.Errorf("expected %q, got %q", tt.wantClause, whereClause)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("expected %d args, got %d", tt.wantArgs, len(args))
			}
		})
	}
}

func TestWhereBuilder_NextArgIndex(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("created_by", "fac-1")
	if got := wb.NextArgIndex(); got != 2 {
		t.Errorf("after one Add: expected 2, got %d", got)
	}

	wb.AddTimestampRange("created_at", time.Now(), time.Now())
	if got := wb.NextArgIndex(); got != 4 {
		t.Errorf("after range: expected 4, got %d", got)
	}
}
