// Package main provisions an initial admin account, issues its bearer
// token, and loads one sample calculation so a fresh deployment has
// something to query.
//
// Usage:
//
//	bootstrap -username admin -password <secret> [-sample=false]
//
// The token is printed exactly once; it is never stored in plaintext.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"biorhythm-api/internal/biorhythm"
	"biorhythm-api/internal/config"
	"biorhythm-api/internal/database"
	"biorhythm-api/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	username := flag.String("username", cfg.AdminUsername, "admin account username")
	password := flag.String("password", cfg.AdminPassword, "admin account password")
	sample := flag.Bool("sample", true, "load a sample person and calculation")
	flag.Parse()

	log := logger.Setup(cfg)

	if *password == "" {
		log.Error("admin password is required (flag -password or BOOTSTRAP_ADMIN_PASSWORD)")
		os.Exit(1)
	}

	if err := run(cfg, log, *username, *password, *sample); err != nil {
		log.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, username, password string, sample bool) error {
	db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Admin account (skip creation if it already exists)
	account, err := db.GetAccountByUsername(ctx, username)
	if database.IsNotFound(err) {
		account, err = db.CreateAccount(ctx, username, password, nil, true)
		if err != nil {
			return fmt.Errorf("create admin account: %w", err)
		}
		log.Info("admin account created", slog.String("username", username))
	} else if err != nil {
		return fmt.Errorf("look up admin account: %w", err)
	} else {
		log.Info("admin account already exists", slog.String("username", username))
	}

	token, err := db.IssueToken(ctx, account.ID, "bootstrap")
	if err != nil {
		return fmt.Errorf("issue admin token: %w", err)
	}

	// Print the plaintext token; this is the only time it is visible.
	fmt.Printf("admin token: %s\n", token.Plaintext)

	if sample {
		if err := loadSample(ctx, db, log); err != nil {
			return fmt.Errorf("load sample data: %w", err)
		}
	}

	return nil
}

// loadSample creates one person and a 30-day calculation starting
// today, going through the same transactional path as the API.
func loadSample(ctx context.Context, db *database.DB, log *slog.Logger) error {
	notes := "Sample person created by bootstrap"
	person := &database.Person{
		Name:      "Ada Example",
		Birthdate: "1990-01-15",
		Notes:     &notes,
	}
	if err := db.CreatePerson(ctx, person); err != nil {
		return fmt.Errorf("create sample person: %w", err)
	}

	birthdate, err := person.BirthdateTime()
	if err != nil {
		return fmt.Errorf("parse sample birthdate: %w", err)
	}

	const days = 30
	start := time.Now().UTC()
	points := biorhythm.ComputeRange(birthdate, start, days)

	calcNotes := "Sample calculation created by bootstrap"
	calc := &database.Calculation{
		PersonID:       person.ID,
		StartDate:      points[0].Date.Format(database.DateLayout),
		EndDate:        points[len(points)-1].Date.Format(database.DateLayout),
		DaysCalculated: len(points),
		EngineVersion:  biorhythm.Version,
		Notes:          &calcNotes,
	}

	rows := make([]database.DataPoint, 0, len(points))
	for _, p := range points {
		rows = append(rows, database.DataPoint{
			PersonID:             person.ID,
			Date:                 p.Date.Format(database.DateLayout),
			DaysAlive:            p.DaysAlive,
			Physical:             p.Physical,
			Emotional:            p.Emotional,
			Intellectual:         p.Intellectual,
			PhysicalCritical:     p.PhysicalCritical,
			EmotionalCritical:    p.EmotionalCritical,
			IntellectualCritical: p.IntellectualCritical,
		})
	}

	if err := db.CreateCalculation(ctx, calc, rows); err != nil {
		return fmt.Errorf("create sample calculation: %w", err)
	}

	log.Info("sample data loaded",
		slog.Int64("person_id", person.ID),
		slog.Int64("calculation_id", calc.ID),
		slog.Int("data_points", len(rows)),
	)

	return nil
}
