package repository

import (
	"github.com/MarcChevalier/Tastevin/app/models"
	"gorm.io/gorm"
)

// contestRepository implements the ContestRepository interface
type contestRepository struct {
	db *gorm.DB
}

// NewContestRepository creates a new contest repository instance
func NewContestRepository(db *gorm.DB) ContestRepository {
	return &contestRepository{db: db}
}

// Create creates a new contest in the database
func (r *contestRepository) Create(contest *models.Contest) error {
	return r.db.Create(contest).Error
}

// GetByID retrieves a contest by its ID
func (r *contestRepository) GetByID(id uint) (*models.Contest, error) {
	var contest models.Contest
	err := r.db.First(&contest, id).Error
	if err != nil {
		return nil, err
	}
	return &contest, nil
}

// GetOpen retrieves contests currently accepting entries
func (r *contestRepository) GetOpen() ([]models.Contest, error) {
	var contests []models.Contest
	err := r.db.Where("status = ?", models.ContestStatusOpen).
		Order("ends_at ASC").Find(&contests).Error
	return contests, err
}

// GetAll retrieves all contests with pagination
func (r *contestRepository) GetAll(offset, limit int) ([]models.Contest, error) {
	var contests []models.Contest
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&contests).Error
	return contests, err
}

// Update updates an existing contest
func (r *contestRepository) Update(contest *models.Contest) error {
	return r.db.Save(contest).Error
}

// Delete soft deletes a contest by its ID
func (r *contestRepository) Delete(id uint) error {
	return r.db.Delete(&models.Contest{}, id).Error
}

// AddEntry submits a tasting note into a contest
func (r *contestRepository) AddEntry(contestID, noteID, userID uint) error {
	entry := models.ContestEntry{ContestID: contestID, NoteID: noteID, UserID: userID}
	return r.db.Create(&entry).Error
}

// GetEntries retrieves all entries for a contest
func (r *contestRepository) GetEntries(contestID uint) ([]models.ContestEntry, error) {
	var entries []models.ContestEntry
	err := r.db.Where("contest_id = ?", contestID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

// HasEntry checks whether the note was already submitted to the contest
func (r *contestRepository) HasEntry(contestID, noteID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ContestEntry{}).Where("contest_id = ? AND note_id = ?", contestID, noteID).Count(&count).Error
	return count > 0, err
}

// Count returns the total number of contests
func (r *contestRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Contest{}).Count(&count).Error
	return count, err
}
