// Package models содержит доменные структуры сервиса синхронизации подписок:
// локальную копию пользователя, запись о прогоне синхронизации
// и представление подписки, полученное от внешнего биллингового API.
package models

import (
	"strings"
	"time"
)

// User представляет локальную копию пользователя вместе с состоянием его подписки.
// Поля подписки либо заполнены все (у пользователя есть запись во внешнем сервисе),
// либо очищены все.
type User struct {
	ID                 int64               `json:"id"`                            // Идентификатор пользователя
	Email              string              `json:"email"`                         // Электронная почта (уникальная, не меняется)
	BeagClientID       *int64              `json:"beag_client_id,omitempty"`      // Идентификатор клиента во внешнем сервисе
	SubscriptionStatus *SubscriptionStatus `json:"subscription_status,omitempty"` // Статус подписки
	PlanID             *int64              `json:"plan_id,omitempty"`             // Идентификатор тарифа
	StartDate          *time.Time          `json:"start_date,omitempty"`          // Начало оплаченного периода
	EndDate            *time.Time          `json:"end_date,omitempty"`            // Конец оплаченного периода
	MySaasAppID        *string             `json:"my_saas_app_id,omitempty"`      // Идентификатор приложения во внешнем сервисе
	LastSynced         *time.Time          `json:"last_synced,omitempty"`         // Время последней синхронизации
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          *time.Time          `json:"updated_at,omitempty"`
}

// ApplySubscription переносит в пользователя все поля подписки из записи внешнего сервиса.
func (u *User) ApplySubscription(rec *SubscriptionRecord, syncedAt time.Time) {
	status := rec.Status
	planID := rec.PlanID
	start := rec.StartDate
	end := rec.EndDate
	appID := rec.MySaasAppID
	clientID := rec.ClientID

	u.SubscriptionStatus = &status
	u.PlanID = &planID
	u.StartDate = &start
	u.EndDate = &end
	u.MySaasAppID = &appID
	u.BeagClientID = &clientID
	u.LastSynced = &syncedAt
}

// ClearSubscription сбрасывает статус, тариф и даты подписки.
// Идентификаторы клиента и приложения сохраняются.
func (u *User) ClearSubscription(syncedAt time.Time) {
	u.SubscriptionStatus = nil
	u.PlanID = nil
	u.StartDate = nil
	u.EndDate = nil
	u.LastSynced = &syncedAt
}

// HasActiveSubscription сообщает, считается ли подписка пользователя активной.
func (u *User) HasActiveSubscription() bool {
	if u.SubscriptionStatus == nil {
		return false
	}
	switch SubscriptionStatus(strings.ToUpper(string(*u.SubscriptionStatus))) {
	case StatusPaid, "ACTIVE", "TRIAL":
		return true
	default:
		return false
	}
}

// DummyUser используется для приёма данных из JSON-запроса на регистрацию пользователя.
type DummyUser struct {
	Email string `json:"email" validate:"required,email"`
}
