package lifecycle

import (
	"fmt"

	"seatpool_backend/internal/models"
)

// Event - действие над подпиской
type Event string

const (
	Renew       Event = "renew"
	MarkOverdue Event = "mark_overdue"
	Complete    Event = "complete"
	Archive     Event = "archive"
	Revert      Event = "revert"
	Pause       Event = "pause"
	Resume      Event = "resume"
	Cancel      Event = "cancel"
)

// TransitionError - пара (статус, событие) не допускается
type TransitionError struct {
	From  models.SubscriptionStatus
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s subscription in status %s", e.Event, e.From)
}

type statusSet map[models.SubscriptionStatus]struct{}

func set(statuses ...models.SubscriptionStatus) statusSet {
	s := make(statusSet, len(statuses))
	for _, st := range statuses {
		s[st] = struct{}{}
	}
	return s
}

type transition struct {
	from statusSet
	to   models.SubscriptionStatus
}

var (
	active    = models.SubscriptionStatusActive
	overdue   = models.SubscriptionStatusOverdue
	paused    = models.SubscriptionStatusPaused
	completed = models.SubscriptionStatusCompleted
	canceled  = models.SubscriptionStatusCanceled
	archived  = models.SubscriptionStatusArchived
)

// Revert обрабатывается отдельно: целевой статус берется из события archived
var transitions = map[Event]transition{
	Renew:       {from: set(active, overdue, paused), to: active},
	MarkOverdue: {from: set(active, overdue), to: overdue},
	Complete:    {from: set(active, overdue, paused), to: completed},
	Archive:     {from: set(active, overdue, paused, completed, canceled), to: archived},
	Pause:       {from: set(active, overdue), to: paused},
	Resume:      {from: set(paused), to: active},
	Cancel:      {from: set(active, overdue, paused), to: canceled},
}

// Next возвращает новый статус или TransitionError
func Next(from models.SubscriptionStatus, ev Event) (models.SubscriptionStatus, error) {
	t, ok := transitions[ev]
	if !ok {
		return from, &TransitionError{From: from, Event: ev}
	}
	if _, allowed := t.from[from]; !allowed {
		return from, &TransitionError{From: from, Event: ev}
	}
	return t.to, nil
}

// RevertTo проверяет возврат из архива в сохраненный статус
func RevertTo(from, previous models.SubscriptionStatus) (models.SubscriptionStatus, error) {
	if from != archived {
		return from, &TransitionError{From: from, Event: Revert}
	}
	if !previous.Valid() || previous == archived {
		return from, fmt.Errorf("invalid previous status %q", previous)
	}
	return previous, nil
}

// Can - разрешено ли событие в статусе
func Can(from models.SubscriptionStatus, ev Event) bool {
	if ev == Revert {
		return from == archived
	}
	_, err := Next(from, ev)
	return err == nil
}

// IsTerminal - completed, canceled и archived не продлеваются
func IsTerminal(status models.SubscriptionStatus) bool {
	switch status {
	case completed, canceled, archived:
		return true
	}
	return false
}

// EventType - тип записи истории для события
func EventType(ev Event) models.SubscriptionEventType {
	switch ev {
	case Renew:
		return models.EventRenewed
	case MarkOverdue:
		return models.EventOverdue
	case Complete:
		return models.EventCompleted
	case Archive:
		return models.EventArchived
	case Revert:
		return models.EventReverted
	case Pause:
		return models.EventPaused
	case Resume:
		return models.EventResumed
	case Cancel:
		return models.EventCanceled
	}
	return models.EventUpdated
}
