package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gradereports/internal/application"
	"github.com/JonMunkholm/gradereports/internal/config"
	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/database"
)

// openSource loads configuration and opens the grade source the flags
// select. The returned close function is never nil.
func openSource(ctx context.Context, cmd *cobra.Command) (*config.Config, application.GradeSource, func(), error) {
	fixture, _ := cmd.Flags().GetString("fixture")
	if fixture != "" {
		cfg, err := config.LoadOffline()
		if err != nil {
			return nil, nil, nil, err
		}
		grades, err := loadFixture(fixture)
		if err != nil {
			return nil, nil, nil, err
		}
		return cfg, grades, func() {}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	// The pool is only needed when grades live in PostgreSQL.
	if cfg.Grades.MySQLDSN != "" {
		grades, closeGrades, err := application.OpenGrades(ctx, cfg, nil)
		return cfg, grades, closeGrades, err
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	grades, closeGrades, err := application.OpenGrades(ctx, cfg, pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return cfg, grades, func() {
		closeGrades()
		pool.Close()
	}, nil
}

func loadFixture(path string) (*core.MemoryGrades, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	grades, err := core.LoadMemoryGrades(f)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return grades, nil
}
