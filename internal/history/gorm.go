package history

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row is the persisted form of an Entry.
type Row struct {
	Fingerprint string    `gorm:"primaryKey"`
	Text        string    `gorm:"not null"`
	Timestamp   time.Time `gorm:"index;not null"`
}

// TableName overrides GORM's pluralization
func (Row) TableName() string {
	return "history_entries"
}

// GormRecorder persists history in Postgres via GORM.
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder migrates the history table and returns a recorder.
func NewGormRecorder(db *gorm.DB) (*GormRecorder, error) {
	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, err
	}
	return &GormRecorder{db: db}, nil
}

// Record upserts the entry by fingerprint and prunes rows beyond the cap.
func (r *GormRecorder) Record(ctx context.Context, entry Entry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := Row{
			Fingerprint: entry.Fingerprint,
			Text:        entry.Text,
			Timestamp:   entry.Timestamp,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			UpdateAll: true,
		}).Create(&row).Error; err != nil {
			return err
		}

		var stale []Row
		if err := tx.Order("timestamp DESC").Offset(MaxEntries).Find(&stale).Error; err != nil {
			return err
		}
		for _, s := range stale {
			if err := tx.Delete(&Row{}, "fingerprint = ?", s.Fingerprint).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns up to MaxEntries entries, most recent first.
func (r *GormRecorder) List(ctx context.Context) ([]Entry, error) {
	var rows []Row
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Limit(MaxEntries).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{
			Text:        row.Text,
			Fingerprint: row.Fingerprint,
			Timestamp:   row.Timestamp,
		}
	}
	return entries, nil
}

// Clear deletes all history rows.
func (r *GormRecorder) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&Row{}).Error
}
