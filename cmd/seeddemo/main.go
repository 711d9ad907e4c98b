// Command seeddemo populates a sqlite database with demo farm plots for
// local development. Timestamps are fixed so repeated runs against a fresh
// database produce identical rows.
//
// Usage:
//
//	go run ./cmd/seeddemo -db crop_advisor.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crop-advisory-service/internal/adapter/store"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "crop_advisor.db", "path to the sqlite database")
	flag.Parse()

	// Fixed clock for reproducible CreatedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.June, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	db, err := store.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	farms := []domain.FarmPlot{
		{
			ID:     "demo-delhi-wheat",
			UserID: "demo-user",
			Name:   "Najafgarh Wheat Plot",
			Location: domain.Geo{
				Lat: 28.61,
				Lon: 77.21,
			},
			Soil: &domain.DeclaredSoil{
				Nitrogen:   45,
				Phosphorus: 30,
				Potassium:  35,
				PH:         6.5,
			},
			AreaHectares: 2.4,
		},
		{
			ID:     "demo-punjab-rice",
			UserID: "demo-user",
			Name:   "Ludhiana Paddy Field",
			Location: domain.Geo{
				Lat: 30.9,
				Lon: 75.85,
			},
			AreaHectares: 5.1,
		},
		{
			ID:     "demo-nagpur-cotton",
			UserID: "demo-user-2",
			Name:   "Nagpur Cotton Plot",
			Location: domain.Geo{
				Lat: 21.15,
				Lon: 79.09,
			},
			Soil: &domain.DeclaredSoil{
				Nitrogen:   60,
				Phosphorus: 22,
				Potassium:  48,
				PH:         7.2,
			},
			AreaHectares: 3.7,
		},
	}

	ctx := context.Background()
	for i := range farms {
		if err := db.Create(ctx, &farms[i]); err != nil {
			return fmt.Errorf("seeding farm %q: %w", farms[i].Name, err)
		}
		log.Printf("seeded farm %s (%s)", farms[i].ID, farms[i].Name)
	}

	log.Printf("seeded %d farms into %s", len(farms), *dbPath)
	return nil
}
