// Package beag реализует клиент внешнего биллингового API, из которого
// берётся актуальное состояние подписок пользователей.
package beag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/metrics"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

var (
	// ErrNotFound — у пользователя нет подписки во внешнем сервисе (404).
	ErrNotFound = errors.New("subscription not found")
	// ErrUnexpectedStatus — сервис ответил кодом, отличным от 200 и 404.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedPayload — тело ответа не удалось разобрать или проверить.
	ErrMalformedPayload = errors.New("malformed payload")
)

const maxErrorBody = 1024

// Client ходит во внешний сервис по HTTP с заранее выданным API-ключом.
// Повторов и кэширования нет.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient создаёт клиент по настройкам из cfg.
func NewClient(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.TimeoutBeag},
		log:        log,
		metrics:    m,
	}
}

// FetchByEmail возвращает подписку пользователя или nil, если её нет.
// Любая ошибка запроса тоже превращается в nil и только логируется,
// поэтому вызывающий код не отличает "нет подписки" от "запрос не удался".
func (c *Client) FetchByEmail(ctx context.Context, email string) *models.SubscriptionRecord {
	rec, err := c.GetSubscriptionByEmail(ctx, email)
	switch {
	case err == nil:
		return rec
	case errors.Is(err, ErrNotFound):
		c.log.Info("no subscription found", slog.String("email", email))
	default:
		c.log.Error("failed to fetch subscription", slog.String("email", email), sl.Err(err))
	}
	return nil
}

// GetSubscriptionByEmail запрашивает подписку по email.
// Отсутствие подписки возвращается как ErrNotFound.
func (c *Client) GetSubscriptionByEmail(ctx context.Context, email string) (*models.SubscriptionRecord, error) {
	const op = "beag.GetSubscriptionByEmail"

	rec, err := c.get(ctx, "/clients/by-email/"+url.PathEscape(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// GetSubscriptionByID запрашивает подписку по идентификатору клиента во внешнем сервисе.
func (c *Client) GetSubscriptionByID(ctx context.Context, clientID int64) (*models.SubscriptionRecord, error) {
	const op = "beag.GetSubscriptionByID"

	rec, err := c.get(ctx, "/clients/by-id/"+strconv.FormatInt(clientID, 10))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, path string) (*models.SubscriptionRecord, error) {
	rec, err := c.do(ctx, path)
	switch {
	case err == nil:
		c.metrics.ObserveLookup(metrics.LookupFound)
	case errors.Is(err, ErrNotFound):
		c.metrics.ObserveLookup(metrics.LookupNotFound)
	default:
		c.metrics.ObserveLookup(metrics.LookupError)
	}
	return rec, err
}

func (c *Client) do(ctx context.Context, path string) (*models.SubscriptionRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(body)))
	}

	var payload subscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return payload.toRecord()
}
