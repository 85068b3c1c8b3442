package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskStatus represents the lifecycle status of a task
type TaskStatus string

const (
	TaskOpen       TaskStatus = "Open"
	TaskInProgress TaskStatus = "InProgress"
	TaskCompleted  TaskStatus = "Completed"
	TaskCancelled  TaskStatus = "Cancelled"
)

// Task represents a job posted on the marketplace
type Task struct {
	ID              string          `json:"id" gorm:"primaryKey"`
	PostedByUserID  string          `json:"postedByUserId" gorm:"not null;index"`
	Title           string          `json:"title" gorm:"not null"`
	Description     string          `json:"description"`
	SkillRequiredID *string         `json:"skillRequiredId" gorm:"index"`
	Location        string          `json:"location"`
	MinPrice        decimal.Decimal `json:"minPrice" gorm:"type:decimal(12,2);not null"`
	MaxPrice        decimal.Decimal `json:"maxPrice" gorm:"type:decimal(12,2);not null"`
	CurrentRate     decimal.Decimal `json:"currentRate" gorm:"type:decimal(12,2);not null"`
	DemandIndex     int             `json:"demandIndex" gorm:"not null;default:0"`
	Status          TaskStatus      `json:"status" gorm:"not null;default:'Open';index"`
	Deadline        *time.Time      `json:"deadline"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"index"`
	ModifiedAt      *time.Time      `json:"modifiedAt"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// SwipeDirection is the direction of a swipe on a task card.
type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// Swipe records a single user's swipe on a task. One per (user, task).
type Swipe struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	UserID     string         `json:"userId" gorm:"not null;uniqueIndex:idx_swipes_user_task"`
	TaskID     string         `json:"taskId" gorm:"not null;uniqueIndex:idx_swipes_user_task;index"`
	Direction  SwipeDirection `json:"direction" gorm:"not null"`
	CreatedAt  time.Time      `json:"createdAt"`
	ModifiedAt *time.Time     `json:"modifiedAt"`
}

func (Swipe) TableName() string {
	return "swipes"
}
