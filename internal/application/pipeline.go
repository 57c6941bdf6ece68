// Package application assembles the report pipeline from configuration.
// Both the HTTP server and the command line tool build their service here so
// the two never drift apart.
package application

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gradereports/internal/config"
	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/database"
	"github.com/JonMunkholm/gradereports/internal/pdf"
)

// GradeSource reads grades and checks faculty entitlement.
type GradeSource interface {
	core.GradeRepository
	core.Authorizer
}

// Pipeline is an assembled report service plus the render slot limiter
// that guards it.
type Pipeline struct {
	Service    *core.Service
	Aggregator *core.Aggregator
	Launcher   *core.LimitedLauncher
	Limiter    *core.RenderLimiter
}

// NewPipeline builds the report service over grades. A nil launcher starts
// headless Chrome.
func NewPipeline(cfg *config.Config, grades core.GradeRepository, launcher core.EngineLauncher) (*Pipeline, error) {
	scale := core.DefaultGradeScale()
	if path := cfg.Report.GradeScaleFile; path != "" {
		loaded, err := core.LoadGradeScale(path)
		if err != nil {
			return nil, fmt.Errorf("load grade scale: %w", err)
		}
		scale = loaded
		slog.Info("grade scale loaded", "path", path, "symbols", len(scale.Entries()))
	}

	if launcher == nil {
		launcher = pdf.NewChromeLauncher(pdf.Options{
			ExecPath:     cfg.Render.ChromePath,
			NoSandbox:    cfg.Render.NoSandbox,
			MarginInches: cfg.Render.PageMarginInches,
		})
	}

	limiter := core.NewRenderLimiter(cfg.Render.MaxEngines, cfg.Render.MaxWait)
	limited := core.NewLimitedLauncher(launcher, limiter)

	aggregator := core.NewAggregator(grades, scale)
	svc := core.NewService(
		aggregator,
		core.NewColumnCatalog(cfg.Report.MaxSemesters),
		limited,
		core.ServiceOptions{
			Institution:       cfg.Report.InstitutionName,
			RenderConcurrency: cfg.Render.Concurrency,
			MaxStudents:       cfg.Report.MaxStudents,
			RenderTimeout:     cfg.Render.Timeout,
		},
	)

	return &Pipeline{Service: svc, Aggregator: aggregator, Launcher: limited, Limiter: limiter}, nil
}

// OpenGrades returns the registrar the configuration points at: MySQL when
// a DSN is set, otherwise the PostgreSQL pool. The returned close function
// is never nil.
func OpenGrades(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (GradeSource, func(), error) {
	if cfg.Grades.MySQLDSN == "" {
		if pool == nil {
			return nil, nil, fmt.Errorf("open grades: no database configured")
		}
		return database.NewPostgresGrades(pool), func() {}, nil
	}

	db, err := database.OpenMySQL(ctx, cfg.Grades.MySQLDSN, cfg.Grades.MySQLMaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("reading grades from mysql", "max_open_conns", cfg.Grades.MySQLMaxOpenConns)
	return database.NewMySQLGrades(db), closeQuietly(db), nil
}

func closeQuietly(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			slog.Warn("failed to close grade database", "error", err)
		}
	}
}
