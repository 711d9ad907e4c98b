package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// Store backs the farm registry and the prediction history with a sqlite
// database. It implements domain.FarmStore and domain.HistoryStore.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.FarmPlot{},
		&domain.PredictionHistoryEntry{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return &Store{db: db}, nil
}

// CheckReadiness pings the underlying database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetByID returns the farm plot or domain.ErrFarmNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (domain.FarmPlot, error) {
	var farm domain.FarmPlot
	err := s.db.WithContext(ctx).First(&farm, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.FarmPlot{}, domain.ErrFarmNotFound
	}
	if err != nil {
		return domain.FarmPlot{}, fmt.Errorf("get farm: %w", err)
	}
	return farm, nil
}

// Create validates and stores a new farm plot, assigning an ID if unset.
func (s *Store) Create(ctx context.Context, farm *domain.FarmPlot) error {
	if err := farm.Validate(); err != nil {
		return err
	}
	if farm.ID == "" {
		farm.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(farm).Error; err != nil {
		return fmt.Errorf("create farm: %w", err)
	}
	return nil
}

// ListByUser returns the user's farm plots, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.FarmPlot, error) {
	var farms []domain.FarmPlot
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&farms).Error
	if err != nil {
		return nil, fmt.Errorf("list farms: %w", err)
	}
	return farms, nil
}

// Insert appends a prediction history entry. History is append-only: rows
// are never updated or deleted here; retention is an external concern.
func (s *Store) Insert(ctx context.Context, entry *domain.PredictionHistoryEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// ListByFarm returns history entries for a farm, most recent first.
func (s *Store) ListByFarm(ctx context.Context, farmID string, limit int) ([]domain.PredictionHistoryEntry, error) {
	var entries []domain.PredictionHistoryEntry
	err := s.db.WithContext(ctx).
		Where("farm_id = ?", farmID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}
