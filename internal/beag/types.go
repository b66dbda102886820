package beag

import (
	"bytes"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// apiTime принимает даты в любом из форматов, которые отдаёт внешний сервис.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("date must be a string, got %s", b)
	}
	raw := string(b[1 : len(b)-1])
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported date format %q", raw)
}

// subscriptionResponse — тело ответа 200 от /clients/by-email и /clients/by-id.
type subscriptionResponse struct {
	Email       string  `json:"email"`
	Status      string  `json:"status"`
	PlanID      *int64  `json:"plan_id"`
	StartDate   apiTime `json:"start_date"`
	EndDate     apiTime `json:"end_date"`
	MySaasAppID *string `json:"my_saas_app_id"`
	ClientID    *int64  `json:"client_id"`
}

// toRecord проверяет обязательные поля и возвращает доменную запись.
func (r subscriptionResponse) toRecord() (*models.SubscriptionRecord, error) {
	status := models.SubscriptionStatus(r.Status)
	switch {
	case r.Email == "":
		return nil, fmt.Errorf("%w: email is missing", ErrMalformedPayload)
	case !status.Valid():
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedPayload, r.Status)
	case r.PlanID == nil:
		return nil, fmt.Errorf("%w: plan_id is missing", ErrMalformedPayload)
	case r.ClientID == nil:
		return nil, fmt.Errorf("%w: client_id is missing", ErrMalformedPayload)
	case r.MySaasAppID == nil:
		return nil, fmt.Errorf("%w: my_saas_app_id is missing", ErrMalformedPayload)
	case r.StartDate.IsZero() || r.EndDate.IsZero():
		return nil, fmt.Errorf("%w: subscription dates are missing", ErrMalformedPayload)
	}

	return &models.SubscriptionRecord{
		Email:       r.Email,
		Status:      status,
		PlanID:      *r.PlanID,
		StartDate:   r.StartDate.Time,
		EndDate:     r.EndDate.Time,
		MySaasAppID: *r.MySaasAppID,
		ClientID:    *r.ClientID,
	}, nil
}
