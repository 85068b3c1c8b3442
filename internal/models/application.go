package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "Pending"
	ApplicationAccepted  ApplicationStatus = "Accepted"
	ApplicationRejected  ApplicationStatus = "Rejected"
	ApplicationCancelled ApplicationStatus = "Cancelled"
)

// TaskApplication is a worker's bid on a task. One per (task, worker).
type TaskApplication struct {
	ID                string            `json:"id" gorm:"primaryKey"`
	TaskID            string            `json:"taskId" gorm:"not null;uniqueIndex:idx_applications_task_worker"`
	WorkerID          string            `json:"workerId" gorm:"not null;uniqueIndex:idx_applications_task_worker;index"`
	CoverLetter       string            `json:"coverLetter"`
	ProposedRate      decimal.Decimal   `json:"proposedRate" gorm:"type:decimal(12,2);not null"`
	EstimatedDuration int               `json:"estimatedDuration"`
	Status            ApplicationStatus `json:"status" gorm:"not null;default:'Pending'"`
	CreatedAt         time.Time         `json:"createdAt"`
	ModifiedAt        *time.Time        `json:"modifiedAt"`
}

func (TaskApplication) TableName() string {
	return "task_applications"
}
