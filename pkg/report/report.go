package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/fixed-tick/pkg/host"
)

// Sample is one group's measurement at one point of a run.
type Sample struct {
	ID          string        `gorm:"primaryKey;size:36"`
	RunID       string        `gorm:"index;size:36;not null"`
	Name        string        `gorm:"size:255;not null"`
	Rate        float64       `gorm:"not null"`
	Elapsed     time.Duration `gorm:"not null"`
	Fired       int64         `gorm:"not null"`
	Expected    int64         `gorm:"not null"`
	Accumulated float64
	RecordedAt  time.Time `gorm:"index"`
	CreatedAt   time.Time
}

// Drift is Fired minus Expected.
func (s Sample) Drift() int64 { return s.Fired - s.Expected }

// GroupDrift is the largest absolute drift seen for a group in a run.
type GroupDrift struct {
	Name     string
	MaxDrift int64
	Samples  int64
}

// Open opens (creating if needed) a SQLite database at path.
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// GormStore persists samples using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the necessary tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Sample{})
}

// Save stores measurements under runID.
func (s *GormStore) Save(ctx context.Context, runID string, ms []host.Measurement) error {
	if len(ms) == 0 {
		return nil
	}
	samples := make([]Sample, 0, len(ms))
	for _, m := range ms {
		samples = append(samples, Sample{
			ID:          uuid.New().String(),
			RunID:       runID,
			Name:        m.Name,
			Rate:        m.Rate,
			Elapsed:     m.Elapsed,
			Fired:       m.Fired,
			Expected:    m.Expected,
			Accumulated: m.Accumulated,
			RecordedAt:  m.At,
		})
	}
	return s.db.WithContext(ctx).Create(&samples).Error
}

// ListRun returns a run's samples ordered by elapsed time, then name.
func (s *GormStore) ListRun(ctx context.Context, runID string) ([]Sample, error) {
	var samples []Sample
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("elapsed ASC").
		Order("name ASC").
		Find(&samples).Error
	return samples, err
}

// Runs returns the IDs of every stored run.
func (s *GormStore) Runs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&Sample{}).
		Distinct().
		Order("run_id").
		Pluck("run_id", &ids).Error
	return ids, err
}

// Drift returns the largest absolute drift per group for a run, ordered by
// group name.
func (s *GormStore) Drift(ctx context.Context, runID string) ([]GroupDrift, error) {
	var out []GroupDrift
	err := s.db.WithContext(ctx).
		Model(&Sample{}).
		Select("name, MAX(ABS(fired - expected)) AS max_drift, COUNT(*) AS samples").
		Where("run_id = ?", runID).
		Group("name").
		Order("name").
		Scan(&out).Error
	return out, err
}

// DeleteRun removes every sample of a run and returns how many were deleted.
func (s *GormStore) DeleteRun(ctx context.Context, runID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("run_id = ?", runID).Delete(&Sample{})
	return result.RowsAffected, result.Error
}

// Recorder returns a host.Recorder that saves measurements under runID.
func (s *GormStore) Recorder(runID string) host.Recorder {
	return host.RecorderFunc(func(ctx context.Context, ms []host.Measurement) error {
		return s.Save(ctx, runID, ms)
	})
}
