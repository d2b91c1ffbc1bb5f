package repository

import (
	"strings"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"gorm.io/gorm"
)

// tastingNoteRepository implements the TastingNoteRepository interface
type tastingNoteRepository struct {
	db *gorm.DB
}

// NewTastingNoteRepository creates a new tasting note repository instance
func NewTastingNoteRepository(db *gorm.DB) TastingNoteRepository {
	return &tastingNoteRepository{db: db}
}

// Create creates a new tasting note in the database
func (r *tastingNoteRepository) Create(note *models.TastingNote) error {
	return r.db.Create(note).Error
}

// GetByID retrieves a tasting note by its ID
func (r *tastingNoteRepository) GetByID(id uint) (*models.TastingNote, error) {
	var note models.TastingNote
	err := r.db.First(&note, id).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// GetByUserID retrieves a user's tasting notes with pagination
func (r *tastingNoteRepository) GetByUserID(userID uint, offset, limit int) ([]models.TastingNote, error) {
	var notes []models.TastingNote
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&notes).Error
	return notes, err
}

// GetByEventID retrieves all notes recorded at a tasting event
func (r *tastingNoteRepository) GetByEventID(eventID uint) ([]models.TastingNote, error) {
	var notes []models.TastingNote
	err := r.db.Where("event_id = ?", eventID).Order("created_at DESC").Find(&notes).Error
	return notes, err
}

// GetPublic retrieves publicly visible notes with pagination
func (r *tastingNoteRepository) GetPublic(offset, limit int) ([]models.TastingNote, error) {
	var notes []models.TastingNote
	err := r.db.Where("is_public = ?", true).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&notes).Error
	return notes, err
}

// Update updates an existing tasting note
func (r *tastingNoteRepository) Update(note *models.TastingNote) error {
	return r.db.Save(note).Error
}

// Delete soft deletes a tasting note by its ID
func (r *tastingNoteRepository) Delete(id uint) error {
	return r.db.Delete(&models.TastingNote{}, id).Error
}

// Count returns the total number of tasting notes
func (r *tastingNoteRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.TastingNote{}).Count(&count).Error
	return count, err
}

// CountByUserID returns the number of notes for a user
func (r *tastingNoteRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.TastingNote{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountByUserIDSince returns the number of notes a user created since the
// given time. Used for the free-tier monthly quota.
func (r *tastingNoteRepository) CountByUserIDSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.TastingNote{}).
		Where("user_id = ? AND created_at >= ?", userID, since).Count(&count).Error
	return count, err
}

// Search searches public notes by wine name, winery or region
func (r *tastingNoteRepository) Search(query string) ([]models.TastingNote, error) {
	var notes []models.TastingNote
	searchPattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("is_public = ?", true).
		Where("wine_name LIKE ? OR winery LIKE ? OR region LIKE ?", searchPattern, searchPattern, searchPattern).
		Order("created_at DESC").Find(&notes).Error
	return notes, err
}
