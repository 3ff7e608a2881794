package dto

import "time"

// SweepResult - итог прогона синхронизатора статусов
type SweepResult struct {
	PoolsExpired               int       `json:"pools_expired"`
	SubscriptionsMarkedOverdue int       `json:"subscriptions_marked_overdue"`
	Failures                   int       `json:"failures"`
	StartedAt                  time.Time `json:"started_at"`
	FinishedAt                 time.Time `json:"finished_at"`
}

// Changed - изменил ли прогон что-нибудь
func (r *SweepResult) Changed() bool {
	return r.PoolsExpired > 0 || r.SubscriptionsMarkedOverdue > 0
}
