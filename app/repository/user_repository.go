package repository

import (
	"strings"

	"github.com/MarcChevalier/Tastevin/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByBillingRef retrieves a user by their billing provider reference
func (r *userRepository) GetByBillingRef(ref string) (*models.User, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("billing_ref = ?", trimmed).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetStatsByUserID returns aggregate statistics for the given user.
func (r *userRepository) GetStatsByUserID(userID uint) (*UserStats, error) {
	var stats UserStats
	if err := r.db.Model(&models.TastingNote{}).Where("user_id = ?", userID).Count(&stats.NoteCount).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.TeamMember{}).Where("user_id = ?", userID).Count(&stats.TeamCount).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.TastingEvent{}).Where("host_id = ?", userID).Count(&stats.HostedCount).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete soft deletes a user by their ID
func (r *userRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// Search searches for users by name or email
func (r *userRepository) Search(query string) ([]models.User, error) {
	var users []models.User
	searchPattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("name LIKE ? OR email LIKE ?", searchPattern, searchPattern).Find(&users).Error
	return users, err
}

// GetWithStats retrieves users with their note and team counts for the admin
// listing.
func (r *userRepository) GetWithStats(offset, limit int) ([]UserWithStats, error) {
	users, err := r.List(offset, limit)
	if err != nil {
		return nil, err
	}

	result := make([]UserWithStats, 0, len(users))
	for _, user := range users {
		var noteCount, teamCount int64
		if err := r.db.Model(&models.TastingNote{}).Where("user_id = ?", user.ID).Count(&noteCount).Error; err != nil {
			return nil, err
		}
		if err := r.db.Model(&models.TeamMember{}).Where("user_id = ?", user.ID).Count(&teamCount).Error; err != nil {
			return nil, err
		}
		result = append(result, UserWithStats{User: user, NoteCount: noteCount, TeamCount: teamCount})
	}
	return result, nil
}
