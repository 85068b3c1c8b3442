package models

import "time"

type TaskReview struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	TaskID         string     `json:"taskId" gorm:"not null;index"`
	ReviewerUserID string     `json:"reviewerUserId" gorm:"not null;index"`
	ReviewedUserID string     `json:"reviewedUserId" gorm:"not null;index"`
	Rating         int        `json:"rating" gorm:"not null"`
	Comment        string     `json:"comment"`
	CreatedAt      time.Time  `json:"createdAt"`
	ModifiedAt     *time.Time `json:"modifiedAt"`
}

func (TaskReview) TableName() string {
	return "task_reviews"
}

type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "Open"
	DisputeUnderReview DisputeStatus = "UnderReview"
	DisputeResolved    DisputeStatus = "Resolved"
	DisputeClosed      DisputeStatus = "Closed"
)

type TaskDispute struct {
	ID             string        `json:"id" gorm:"primaryKey"`
	TaskID         string        `json:"taskId" gorm:"not null;index"`
	RaisedByUserID string        `json:"raisedByUserId" gorm:"not null;index"`
	Reason         string        `json:"reason" gorm:"not null"`
	Evidence       string        `json:"evidence"`
	Status         DisputeStatus `json:"status" gorm:"not null;default:'Open'"`
	Resolution     string        `json:"resolution"`
	CreatedAt      time.Time     `json:"createdAt"`
	ModifiedAt     *time.Time    `json:"modifiedAt"`
}

func (TaskDispute) TableName() string {
	return "task_disputes"
}
