package repository

import (
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByBillingRef(ref string) (*models.User, error)
	GetStatsByUserID(userID uint) (*UserStats, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
	GetWithStats(offset, limit int) ([]UserWithStats, error)
}

// TeamRepository defines the interface for team-related database operations
type TeamRepository interface {
	Create(team *models.Team) error
	GetByID(id uint) (*models.Team, error)
	GetByUserID(userID uint) ([]models.Team, error)
	Update(team *models.Team) error
	Delete(id uint) error
	AddMember(teamID, userID uint) error
	RemoveMember(teamID, userID uint) error
	IsMember(teamID, userID uint) (bool, error)
	GetMembers(teamID uint) ([]models.User, error)
	Count() (int64, error)
	CountByOwnerID(ownerID uint) (int64, error)
}

// TastingEventRepository defines the interface for tasting event operations
type TastingEventRepository interface {
	Create(event *models.TastingEvent) error
	GetByID(id uint) (*models.TastingEvent, error)
	GetUpcoming(offset, limit int) ([]models.TastingEvent, error)
	GetByHostID(hostID uint) ([]models.TastingEvent, error)
	GetByTeamID(teamID uint) ([]models.TastingEvent, error)
	Update(event *models.TastingEvent) error
	Delete(id uint) error
	AddAttendee(eventID, userID uint) error
	RemoveAttendee(eventID, userID uint) error
	IsAttendee(eventID, userID uint) (bool, error)
	CountAttendees(eventID uint) (int64, error)
	Count() (int64, error)
}

// TastingNoteRepository defines the interface for tasting note operations
type TastingNoteRepository interface {
	Create(note *models.TastingNote) error
	GetByID(id uint) (*models.TastingNote, error)
	GetByUserID(userID uint, offset, limit int) ([]models.TastingNote, error)
	GetByEventID(eventID uint) ([]models.TastingNote, error)
	GetPublic(offset, limit int) ([]models.TastingNote, error)
	Update(note *models.TastingNote) error
	Delete(id uint) error
	Count() (int64, error)
	CountByUserID(userID uint) (int64, error)
	CountByUserIDSince(userID uint, since time.Time) (int64, error)
	Search(query string) ([]models.TastingNote, error)
}

// ContestRepository defines the interface for contest operations
type ContestRepository interface {
	Create(contest *models.Contest) error
	GetByID(id uint) (*models.Contest, error)
	GetOpen() ([]models.Contest, error)
	GetAll(offset, limit int) ([]models.Contest, error)
	Update(contest *models.Contest) error
	Delete(id uint) error
	AddEntry(contestID, noteID, userID uint) error
	GetEntries(contestID uint) ([]models.ContestEntry, error)
	HasEntry(contestID, noteID uint) (bool, error)
	Count() (int64, error)
}

// CacheRepository defines the interface for cache inspection operations
type CacheRepository interface {
	GetAllKeys() ([]string, error)
	GetValue(key string) (string, error)
	GetTTL(key string) (time.Duration, error)
	DeleteKey(key string) (int64, error)
	FindKeysByPatterns(patterns []string) ([]string, error)
	DeleteKeys(keys []string) (int64, error)
}

// UserWithStats represents a user with additional statistics
type UserWithStats struct {
	User      models.User
	NoteCount int64
	TeamCount int64
}

// UserStats provides aggregated counts for a single user (notes, teams, hosted events).
type UserStats struct {
	NoteCount   int64
	TeamCount   int64
	HostedCount int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Team    TeamRepository
	Event   TastingEventRepository
	Note    TastingNoteRepository
	Contest ContestRepository
	Cache   CacheRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Team:    NewTeamRepository(db),
		Event:   NewTastingEventRepository(db),
		Note:    NewTastingNoteRepository(db),
		Contest: NewContestRepository(db),
		Cache:   NewCacheRepository(),
	}
}
