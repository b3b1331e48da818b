package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loadplan/internal/store"
)

// Event types emitted by the planning pipeline.
const (
	EventPlanCompleted = "plan.completed"
	EventPlanWarning   = "plan.warning"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit fans an event out to every matching subscription for the tenant.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, tenantID, eventType)
	if err != nil || len(subs) == 0 {
		return
	}
	payload := map[string]any{
		"id":       fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type":     eventType,
		"tenantId": tenantID,
		"ts":       time.Now().UTC().Format(time.RFC3339),
		"data":     data,
	}
	body, _ := json.Marshal(payload)
	for _, s := range subs {
		_, _ = p.Store.EnqueueNotification(ctx, tenantID, s.ID, eventType, s.URL, s.Secret, body)
	}
}
