package store

import (
	"context"
	"errors"
	"time"

	"loadplan/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Plans
	CreatePlan(ctx context.Context, plan model.PlanOut) (model.PlanOut, error)
	GetPlan(ctx context.Context, tenantID, planID string) (model.PlanOut, error)
	ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.PlanOut, string, error)
	DeletePlan(ctx context.Context, tenantID, planID string) error
	PlanStats(ctx context.Context, tenantID string) (map[string]any, error)

	// Container catalog
	UpsertContainerType(ctx context.Context, tenantID string, in model.ContainerTypeIn) error
	ListContainerTypes(ctx context.Context, tenantID string) ([]model.ContainerTypeIn, error)
	DeleteContainerType(ctx context.Context, tenantID, name string) error

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Notification deliveries
	EnqueueNotification(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueNotifications(ctx context.Context, limit int) ([]Delivery, error)
	MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailNotification(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

var ErrNotFound = errors.New("not found")
