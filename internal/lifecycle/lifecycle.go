// Package lifecycle holds the closed status sets of tasks, applications,
// disputes and escrow payments together with their allowed transitions.
package lifecycle

import (
	"strings"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/models"
)

// machine maps a status to the statuses it may move to.
type machine[S ~string] map[S][]S

func (m machine[S]) known(s S) bool {
	_, ok := m[s]
	return ok
}

func (m machine[S]) allows(from, to S) bool {
	for _, next := range m[from] {
		if next == to {
			return true
		}
	}
	return false
}

// parse matches raw case-insensitively against the known statuses.
func (m machine[S]) parse(raw string) (S, bool) {
	raw = strings.TrimSpace(raw)
	for s := range m {
		if strings.EqualFold(string(s), raw) {
			return s, true
		}
	}
	return "", false
}

var taskMachine = machine[models.TaskStatus]{
	models.TaskOpen:       {models.TaskInProgress, models.TaskCancelled},
	models.TaskInProgress: {models.TaskCompleted, models.TaskCancelled},
	models.TaskCompleted:  nil,
	models.TaskCancelled:  nil,
}

var applicationMachine = machine[models.ApplicationStatus]{
	models.ApplicationPending:   {models.ApplicationAccepted, models.ApplicationRejected, models.ApplicationCancelled},
	models.ApplicationAccepted:  nil,
	models.ApplicationRejected:  nil,
	models.ApplicationCancelled: nil,
}

var disputeMachine = machine[models.DisputeStatus]{
	models.DisputeOpen:        {models.DisputeUnderReview, models.DisputeResolved, models.DisputeClosed},
	models.DisputeUnderReview: {models.DisputeResolved, models.DisputeClosed},
	models.DisputeResolved:    {models.DisputeClosed},
	models.DisputeClosed:      nil,
}

var escrowMachine = machine[models.PaymentStatus]{
	models.PaymentHeld:     {models.PaymentReleased, models.PaymentRefunded},
	models.PaymentReleased: nil,
	models.PaymentRefunded: nil,
}

func ParseTaskStatus(raw string) (models.TaskStatus, error) {
	if s, ok := taskMachine.parse(raw); ok {
		return s, nil
	}
	return "", apperr.Validation("Invalid task status '%s'", raw)
}

// TaskTransition validates moving a task from one status to another.
func TaskTransition(from, to models.TaskStatus) error {
	if !taskMachine.known(to) {
		return apperr.Validation("Invalid task status '%s'", to)
	}
	if !taskMachine.allows(from, to) {
		return apperr.Validation("Cannot change task status from %s to %s", from, to)
	}
	return nil
}

// IsTerminalTask reports whether no further transitions are possible.
func IsTerminalTask(s models.TaskStatus) bool {
	return taskMachine.known(s) && len(taskMachine[s]) == 0
}

func ParseApplicationStatus(raw string) (models.ApplicationStatus, error) {
	if s, ok := applicationMachine.parse(raw); ok {
		return s, nil
	}
	return "", apperr.Validation("Invalid application status '%s'", raw)
}

func ApplicationTransition(from, to models.ApplicationStatus) error {
	if !applicationMachine.known(to) {
		return apperr.Validation("Invalid application status '%s'", to)
	}
	if !applicationMachine.allows(from, to) {
		return apperr.Validation("Cannot change application status from %s to %s", from, to)
	}
	return nil
}

func ParseDisputeStatus(raw string) (models.DisputeStatus, error) {
	if s, ok := disputeMachine.parse(raw); ok {
		return s, nil
	}
	return "", apperr.Validation("Invalid dispute status '%s'", raw)
}

func DisputeTransition(from, to models.DisputeStatus) error {
	if !disputeMachine.known(to) {
		return apperr.Validation("Invalid dispute status '%s'", to)
	}
	if !disputeMachine.allows(from, to) {
		return apperr.Validation("Cannot change dispute status from %s to %s", from, to)
	}
	return nil
}

// EscrowTransition guards release and refund. Both leave the payment
// settled, so a second settlement is always rejected.
func EscrowTransition(from, to models.PaymentStatus) error {
	if !escrowMachine.allows(from, to) {
		return apperr.Validation("Payment has already been released")
	}
	return nil
}

func ParseSwipeDirection(raw string) (models.SwipeDirection, error) {
	switch models.SwipeDirection(strings.ToLower(strings.TrimSpace(raw))) {
	case models.SwipeLeft:
		return models.SwipeLeft, nil
	case models.SwipeRight:
		return models.SwipeRight, nil
	}
	return "", apperr.Validation("Swipe direction must be 'left' or 'right'")
}
