package repository

import (
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"gorm.io/gorm"
)

// tastingEventRepository implements the TastingEventRepository interface
type tastingEventRepository struct {
	db *gorm.DB
}

// NewTastingEventRepository creates a new tasting event repository instance
func NewTastingEventRepository(db *gorm.DB) TastingEventRepository {
	return &tastingEventRepository{db: db}
}

// Create creates a new tasting event and enrolls the host as attendee
func (r *tastingEventRepository) Create(event *models.TastingEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		attendee := models.EventAttendee{EventID: event.ID, UserID: event.HostID}
		return tx.Create(&attendee).Error
	})
}

// GetByID retrieves a tasting event by its ID, including attendees
func (r *tastingEventRepository) GetByID(id uint) (*models.TastingEvent, error) {
	var event models.TastingEvent
	err := r.db.Preload("Attendees").First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetUpcoming retrieves future events ordered by start time
func (r *tastingEventRepository) GetUpcoming(offset, limit int) ([]models.TastingEvent, error) {
	var events []models.TastingEvent
	err := r.db.Where("starts_at > ?", time.Now()).
		Order("starts_at ASC").Offset(offset).Limit(limit).Find(&events).Error
	return events, err
}

// GetByHostID retrieves all events hosted by a user
func (r *tastingEventRepository) GetByHostID(hostID uint) ([]models.TastingEvent, error) {
	var events []models.TastingEvent
	err := r.db.Where("host_id = ?", hostID).Order("starts_at DESC").Find(&events).Error
	return events, err
}

// GetByTeamID retrieves all events hosted by a team
func (r *tastingEventRepository) GetByTeamID(teamID uint) ([]models.TastingEvent, error) {
	var events []models.TastingEvent
	err := r.db.Where("team_id = ?", teamID).Order("starts_at DESC").Find(&events).Error
	return events, err
}

// Update updates an existing tasting event
func (r *tastingEventRepository) Update(event *models.TastingEvent) error {
	return r.db.Save(event).Error
}

// Delete soft deletes a tasting event and its attendance records
func (r *tastingEventRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventAttendee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.TastingEvent{}, id).Error
	})
}

// AddAttendee enrolls a user into an event
func (r *tastingEventRepository) AddAttendee(eventID, userID uint) error {
	attendee := models.EventAttendee{EventID: eventID, UserID: userID}
	return r.db.Create(&attendee).Error
}

// RemoveAttendee removes a user from an event
func (r *tastingEventRepository) RemoveAttendee(eventID, userID uint) error {
	return r.db.Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&models.EventAttendee{}).Error
}

// IsAttendee checks whether the user attends the event
func (r *tastingEventRepository) IsAttendee(eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.EventAttendee{}).Where("event_id = ? AND user_id = ?", eventID, userID).Count(&count).Error
	return count > 0, err
}

// CountAttendees returns the number of attendees for an event
func (r *tastingEventRepository) CountAttendees(eventID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.EventAttendee{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, err
}

// Count returns the total number of tasting events
func (r *tastingEventRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.TastingEvent{}).Count(&count).Error
	return count, err
}
