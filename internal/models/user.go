package models

import (
	"time"
)

// User represents a marketplace member. Users post tasks and work on them.
type User struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	FullName       string     `json:"fullName" gorm:"not null"`
	Email          string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash   string     `json:"-" gorm:"not null"`
	PhoneNumber    string     `json:"phoneNumber"`
	ProfilePicture string     `json:"profilePicture"`
	Bio            string     `json:"bio"`
	IsVerified     bool       `json:"isVerified" gorm:"not null;default:false"`
	CreatedAt      time.Time  `json:"createdAt"`
	ModifiedAt     *time.Time `json:"modifiedAt"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// UserSkill links a user to a skill they offer.
type UserSkill struct {
	UserID    string    `json:"userId" gorm:"primaryKey"`
	SkillID   string    `json:"skillId" gorm:"primaryKey;index"`
	CreatedAt time.Time `json:"createdAt"`
}

func (UserSkill) TableName() string {
	return "user_skills"
}
