package models

import "time"

// SubscriptionStatus — статус подписки во внешнем биллинговом сервисе.
type SubscriptionStatus string

const (
	StatusPaid      SubscriptionStatus = "PAID"
	StatusFailed    SubscriptionStatus = "FAILED"
	StatusCancelled SubscriptionStatus = "CANCELLED"
	StatusRefunded  SubscriptionStatus = "REFUNDED"
	StatusPaused    SubscriptionStatus = "PAUSED"
	StatusResumed   SubscriptionStatus = "RESUMED"
)

// Valid проверяет, что статус входит в известный набор значений.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusFailed, StatusCancelled, StatusRefunded, StatusPaused, StatusResumed:
		return true
	default:
		return false
	}
}

// SubscriptionRecord — представление подписки пользователя во внешнем сервисе.
// В хранилище напрямую не сохраняется, используется для обновления User.
type SubscriptionRecord struct {
	Email       string             `json:"email"`
	Status      SubscriptionStatus `json:"status"`
	PlanID      int64              `json:"plan_id"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     time.Time          `json:"end_date"`
	MySaasAppID string             `json:"my_saas_app_id"`
	ClientID    int64              `json:"client_id"`
}

// CachedSubscription — подписка пользователя в том виде, в котором она хранится локально.
type CachedSubscription struct {
	Email      string             `json:"email"`
	Status     SubscriptionStatus `json:"status"`
	PlanID     *int64             `json:"plan_id"`
	StartDate  *time.Time         `json:"start_date"`
	EndDate    *time.Time         `json:"end_date"`
	LastSynced *time.Time         `json:"last_synced"`
}
