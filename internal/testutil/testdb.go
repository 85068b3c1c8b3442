package testutil

import (
	"time"

	"riteswipe-api/internal/database"
	"riteswipe-api/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewInMemoryDB creates a private in-memory SQLite DB and runs migrations.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// SeedUser inserts a user with an unusable password hash.
func SeedUser(db *gorm.DB, fullName string) (models.User, error) {
	u := models.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	return u, db.Create(&u).Error
}

func SeedSkill(db *gorm.DB, name string) (models.Skill, error) {
	s := models.Skill{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	return s, db.Create(&s).Error
}

// SeedTask inserts a task owned by ownerID with the given status and price range.
func SeedTask(db *gorm.DB, ownerID string, skillID *string, status models.TaskStatus, min, max int64) (models.Task, error) {
	t := models.Task{
		ID:              uuid.NewString(),
		PostedByUserID:  ownerID,
		Title:           "Task " + uuid.NewString()[:8],
		SkillRequiredID: skillID,
		MinPrice:        decimal.NewFromInt(min),
		MaxPrice:        decimal.NewFromInt(max),
		CurrentRate:     decimal.NewFromInt(min),
		Status:          status,
		CreatedAt:       time.Now().UTC(),
	}
	return t, db.Create(&t).Error
}
