package models

import "time"

// Skill is a name-unique capability referenced by tasks and users.
type Skill struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	Name       string     `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time  `json:"createdAt"`
	ModifiedAt *time.Time `json:"modifiedAt"`
}

func (Skill) TableName() string {
	return "skills"
}
