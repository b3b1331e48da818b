package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"loadplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	plans    map[string]model.PlanOut // id -> plan
	plansTen map[string][]string      // tenant -> plan ids in creation order
	catalog  map[string][]model.ContainerTypeIn
	subs     map[string][]model.Subscription // tenant -> subscriptions
	// Notification queue state
	deliveries map[string]*memDelivery
	order      []string // delivery ids in enqueue order
}

func NewMemory() *Memory {
	return &Memory{
		plans:      map[string]model.PlanOut{},
		plansTen:   map[string][]string{},
		catalog:    map[string][]model.ContainerTypeIn{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

// memDelivery augments Delivery with scheduling state.
type memDelivery struct {
	Delivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func (m *Memory) CreatePlan(ctx context.Context, plan model.PlanOut) (model.PlanOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.CreatedAt == "" {
		plan.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.plans[plan.ID] = plan
	m.plansTen[plan.TenantID] = append(m.plansTen[plan.TenantID], plan.ID)
	return plan, nil
}

func (m *Memory) GetPlan(ctx context.Context, tenantID, planID string) (model.PlanOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[planID]
	if !ok || p.TenantID != tenantID {
		return model.PlanOut{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.PlanOut, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.plansTen[tenantID]
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.PlanOut{}
	var last string
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.plans[ids[i]])
		last = ids[i]
	}
	next := ""
	if len(out) == limit && start+len(out) < len(ids) {
		next = last
	}
	return out, next, nil
}

func (m *Memory) DeletePlan(ctx context.Context, tenantID, planID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[planID]
	if !ok || p.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.plans, planID)
	ids := m.plansTen[tenantID]
	for i, id := range ids {
		if id == planID {
			m.plansTen[tenantID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) PlanStats(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, warned, placed, unplaced := 0, 0, 0, 0
	var util float64
	for _, id := range m.plansTen[tenantID] {
		p := m.plans[id]
		total++
		if p.Summary.Warnings > 0 {
			warned++
		}
		placed += p.Summary.PlacedUnits
		unplaced += p.Summary.UnplacedUnits
		util += p.Summary.AvgVolumeUtil
	}
	stats := map[string]any{
		"plans":         total,
		"withWarnings":  warned,
		"placedUnits":   placed,
		"unplacedUnits": unplaced,
	}
	if total > 0 {
		stats["avgVolumeUtil"] = util / float64(total)
	}
	return stats, nil
}

func (m *Memory) UpsertContainerType(ctx context.Context, tenantID string, in model.ContainerTypeIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := m.catalog[tenantID]
	for i, t := range types {
		if t.Name == in.Name {
			types[i] = in
			return nil
		}
	}
	m.catalog[tenantID] = append(types, in)
	sort.Slice(m.catalog[tenantID], func(i, j int) bool {
		return m.catalog[tenantID][i].Name < m.catalog[tenantID][j].Name
	})
	return nil
}

func (m *Memory) ListContainerTypes(ctx context.Context, tenantID string) ([]model.ContainerTypeIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ContainerTypeIn, len(m.catalog[tenantID]))
	copy(out, m.catalog[tenantID])
	return out, nil
}

func (m *Memory) DeleteContainerType(ctx context.Context, tenantID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := m.catalog[tenantID]
	for i, t := range types {
		if t.Name == name {
			m.catalog[tenantID] = append(types[:i], types[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   req.Events,
		Secret:   req.Secret,
	}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], sub)
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i, s := range subs {
			if s.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.Subscription{}
	var last string
	for i := start; i < len(subs) && len(out) < limit; i++ {
		out = append(out, subs[i])
		last = subs[i].ID
	}
	next := ""
	if len(out) == limit && start+len(out) < len(subs) {
		next = last
	}
	return out, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	for i, s := range subs {
		if s.ID == id {
			m.subs[tenantID] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueNotification(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		Delivery: Delivery{
			ID:             id,
			TenantID:       tenantID,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        payload,
			Status:         "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) FetchDueNotifications(ctx context.Context, limit int) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	now := time.Now()
	out := []Delivery{}
	for _, id := range m.order {
		d := m.deliveries[id]
		if d.Status != "pending" && d.Status != "retry" {
			continue
		}
		if d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.Delivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkNotification(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
		return nil
	}
	d.Attempts++
	d.Status = "retry"
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailNotification(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}
