package models

import "time"

// Notification is the durable per-user record of a lifecycle event.
type Notification struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	UserID     string     `json:"userId" gorm:"not null;index"`
	Message    string     `json:"message" gorm:"not null"`
	IsRead     bool       `json:"isRead" gorm:"not null;default:false;index"`
	ReadAt     *time.Time `json:"readAt"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"index"`
	ModifiedAt *time.Time `json:"modifiedAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// OutboxEvent is a push event committed together with the state change that
// produced it and dispatched after commit.
type OutboxEvent struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Group        string     `json:"group" gorm:"column:group_name;not null"`
	Event        string     `json:"event" gorm:"not null"`
	Payload      string     `json:"payload" gorm:"type:text;not null"`
	Attempts     int        `json:"attempts" gorm:"not null;default:0"`
	Pushed       bool       `json:"pushed" gorm:"not null;default:false"`
	Dispatched   bool       `json:"dispatched" gorm:"not null;default:false;index"`
	DispatchedAt *time.Time `json:"dispatchedAt"`
	LastError    string     `json:"lastError"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"index"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Skill{},
		&UserSkill{},
		&Task{},
		&Swipe{},
		&TaskApplication{},
		&EscrowPayment{},
		&TaskReview{},
		&TaskDispute{},
		&Notification{},
		&OutboxEvent{},
	}
}
