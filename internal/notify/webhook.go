// Package notify pushes operator notifications for registrations that are
// waiting for approval, so nobody has to poll the dashboard.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/tg-promo/promobot/internal/models"
)

// Webhook POSTs a JSON payload to the configured URL whenever a new entity
// lands pending approval. An empty URL disables it.
type Webhook struct {
	url    string
	client *resty.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: resty.New(),
	}
}

type pendingPayload struct {
	Kind        models.Kind `json:"kind"`
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	MemberCount int         `json:"memberCount"`
	Category    models.Tier `json:"category"`
	OwnerID     string      `json:"ownerId"`
	InviteLink  string      `json:"inviteLink"`
}

// EntityPending notifies about a newly registered entity awaiting approval.
func (w *Webhook) EntityPending(ctx context.Context, kind models.Kind, entity models.Entity) error {
	if w.url == "" {
		return nil
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(pendingPayload{
			Kind:        kind,
			ID:          entity.ID,
			Title:       entity.Title,
			MemberCount: entity.MemberCount,
			Category:    entity.Category,
			OwnerID:     entity.OwnerID,
			InviteLink:  entity.InviteLink,
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status code: %d %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
