package models

import "time"

// SyncStatus — итоговый статус прогона синхронизации.
type SyncStatus string

const (
	SyncInProgress SyncStatus = "IN_PROGRESS"
	SyncSuccess    SyncStatus = "SUCCESS"
	SyncPartial    SyncStatus = "PARTIAL"
	SyncFailed     SyncStatus = "FAILED"
)

// SyncStatusFor вычисляет статус завершённого прогона по числу успехов и неудач.
func SyncStatusFor(synced, failed int) SyncStatus {
	switch {
	case failed == 0:
		return SyncSuccess
	case synced > 0:
		return SyncPartial
	default:
		return SyncFailed
	}
}

// SyncRun — запись журнала синхронизации. Создаётся в начале прогона,
// завершается ровно один раз и после этого не меняется.
type SyncRun struct {
	ID           int64      `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	UsersSynced  int        `json:"users_synced"`
	UsersFailed  int        `json:"users_failed"`
	Status       SyncStatus `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// SyncRunSummary — итог прогона, возвращаемый вызывающему коду.
type SyncRunSummary struct {
	RunID                 int64      `json:"run_id"`
	TotalUsers            int        `json:"total_users"`
	UsersSynced           int        `json:"users_synced"`
	UsersFailed           int        `json:"users_failed"`
	ActiveSubscriptions   int        `json:"active_subscriptions"`
	InactiveSubscriptions int        `json:"inactive_subscriptions"`
	Status                SyncStatus `json:"status"`
	Error                 string     `json:"error,omitempty"`
}
