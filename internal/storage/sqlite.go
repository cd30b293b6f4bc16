package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nihanthkethireddy/invite/internal/models"
)

type guestRow struct {
	ID        string    `gorm:"primaryKey;size:32"`
	Name      string    `gorm:"not null"`
	Phone     string    `gorm:"index;not null"`
	RSVP      string    `gorm:"column:rsvp"`
	PlusOnes  int       `gorm:"not null;default:0"`
	Scope     string    `gorm:"not null;default:all"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (guestRow) TableName() string { return "guests" }

func toRow(g models.Guest) guestRow {
	return guestRow{
		ID:        g.ID,
		Name:      g.Name,
		Phone:     g.Phone,
		RSVP:      string(g.RSVP),
		PlusOnes:  g.PlusOnes,
		Scope:     string(g.Scope),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func (r guestRow) guest() models.Guest {
	g := models.Guest{
		ID:        r.ID,
		Name:      r.Name,
		Phone:     r.Phone,
		RSVP:      models.RSVPChoice(r.RSVP),
		PlusOnes:  r.PlusOnes,
		Scope:     models.Scope(r.Scope),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if !g.RSVP.Valid() {
		g.RSVP = models.RSVPNone
	}
	normalizeRecord(&g)
	return g
}

// SQLiteStore keeps guests in a single sqlite table
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates it
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&guestRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// ReadAll returns every guest
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]models.Guest, error) {
	var rows []guestRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	guests := make([]models.Guest, len(rows))
	for i, r := range rows {
		guests[i] = r.guest()
	}
	return guests, nil
}

// FindByPhone returns the guest with the given canonical phone, or nil
func (s *SQLiteStore) FindByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	var row guestRow
	err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g := row.guest()
	return &g, nil
}

// Insert adds a guest
func (s *SQLiteStore) Insert(ctx context.Context, guest models.Guest) error {
	row := toRow(guest)
	return s.db.WithContext(ctx).Create(&row).Error
}

// Update replaces every column of the guest with the same id
func (s *SQLiteStore) Update(ctx context.Context, guest models.Guest) error {
	row := toRow(guest)
	res := s.db.WithContext(ctx).Model(&guestRow{ID: guest.ID}).Select("*").Omit("id").Updates(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(guest.ID)
	}
	return nil
}

// DeleteByID removes the guest with the given id
func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&guestRow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
