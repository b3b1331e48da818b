package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"loadplan/internal/metrics"
	"loadplan/internal/model"
	"loadplan/internal/notify"
	"loadplan/internal/pack"
	"loadplan/internal/store"
)

// PlansHandler handles /v1/plans (POST create, GET list).
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createPlan(w, r)
	case http.MethodGet:
		s.listPlans(w, r)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
	}
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	if !pr.CanPlan() {
		writeProblem(w, http.StatusForbidden, "forbidden", "admin or planner role required", r.URL.Path)
		return
	}
	var req model.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
		return
	}
	s.runPlan(w, r, req)
}

// runPlan validates, packs, persists and announces one plan request.
// Shared by the JSON and CSV-import entry points.
func (s *Server) runPlan(w http.ResponseWriter, r *http.Request, req model.PlanRequest) {
	if err := validatePlanRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request", err.Error(), r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)

	cfg := s.Rules
	if req.Options.WeightDistributionTolerance > 0 {
		cfg.CoGTolerance = req.Options.WeightDistributionTolerance
	}
	if sr := req.Options.StackingRules; sr != nil {
		if sr.MaxWeightRatio > 0 {
			cfg.StackingRatio = sr.MaxWeightRatio
		}
		if sr.SupportRatio > 0 {
			cfg.SupportRatio = sr.SupportRatio
		}
	}
	opts := pack.Options{
		RouteStrategy:    req.Options.RouteStrategy,
		LoadingSequence:  req.Options.LoadingSequence,
		AllowMixedRoutes: req.Options.AllowMixedRoutes,
		MaxStackHeight:   req.Options.MaxStackHeightMm,
		Config:           cfg,
	}
	start := time.Now()
	loads, err := pack.Distribute(itemsFromIns(req.Items), specsFromTypes(req.Containers), opts)
	if err != nil {
		metrics.PlanRequests.WithLabelValues("rejected").Inc()
		writeProblem(w, http.StatusBadRequest, "invalid request", err.Error(), r.URL.Path)
		return
	}
	out := planOut(tenant, req.ExternalRef, loads)
	saved, err := s.Store.CreatePlan(ctx, out)
	if err != nil {
		metrics.PlanRequests.WithLabelValues("error").Inc()
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
		return
	}

	metrics.PlanRequests.WithLabelValues(saved.Status).Inc()
	metrics.PlanDuration.Observe(time.Since(start).Seconds())
	metrics.PlacedUnits.Add(float64(saved.Summary.PlacedUnits))
	metrics.UnplacedUnits.Add(float64(saved.Summary.UnplacedUnits))
	for _, c := range saved.Containers {
		for _, wn := range c.Warnings {
			metrics.PlanWarnings.WithLabelValues(wn.Kind).Inc()
		}
	}

	s.Broker.Publish(saved.ID, SSEEvent{Type: notify.EventPlanCompleted, Data: map[string]any{
		"planId": saved.ID, "status": saved.Status, "containers": saved.Summary.Containers,
	}})
	s.Pub.Emit(ctx, tenant, notify.EventPlanCompleted, map[string]any{
		"planId": saved.ID, "status": saved.Status, "summary": saved.Summary,
	})
	if saved.Status == "completed_with_warnings" {
		s.Pub.Emit(ctx, tenant, notify.EventPlanWarning, map[string]any{
			"planId": saved.ID, "warnings": saved.Summary.Warnings, "unplacedUnits": saved.Summary.UnplacedUnits,
		})
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	ctx, tenant := s.withTenant(r)
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		_, _ = fmt.Sscanf(v, "%d", &limit)
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	cursor := r.URL.Query().Get("cursor")
	items, next, err := s.Store.ListPlans(ctx, tenant, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler handles /v1/plans/{id} and /v1/plans/{id}/events/stream.
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if rest == "" {
		writeProblem(w, http.StatusNotFound, "not found", "", r.URL.Path)
		return
	}
	if id, ok := strings.CutSuffix(rest, "/events/stream"); ok {
		s.streamPlanEvents(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	id := rest
	ctx, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodGet:
		plan, err := s.Store.GetPlan(ctx, tenant, id)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "plan not found", "", r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	case http.MethodDelete:
		if !s.getPrincipal(r).CanPlan() {
			writeProblem(w, http.StatusForbidden, "forbidden", "admin or planner role required", r.URL.Path)
			return
		}
		if err := s.Store.DeletePlan(ctx, tenant, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "plan not found", "", r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
	}
}

// streamPlanEvents serves an SSE stream of broker events for one plan.
func (s *Server) streamPlanEvents(w http.ResponseWriter, r *http.Request, planID string) {
	ctx, tenant := s.withTenant(r)
	if _, err := s.Store.GetPlan(ctx, tenant, planID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "plan not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, ": connected plan=%s\n\n", planID)
	flusher.Flush()

	ch := s.Broker.Subscribe(planID)
	defer s.Broker.Unsubscribe(planID, ch)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case evt, open := <-ch:
			if !open {
				return
			}
			data, _ := json.Marshal(evt.Data)
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		}
	}
}

// ValidateHandler handles POST /v1/plans/validate. It re-checks supplied
// placements against the rule set without persisting anything.
func (s *Server) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	var req model.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateContainerType(&req.Container); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request", err.Error(), r.URL.Path)
		return
	}
	plan := pack.LoadPlan{Spec: specFromType(req.Container)}
	for i := range req.Placements {
		in := &req.Placements[i]
		if in.Item.Quantity == 0 {
			in.Item.Quantity = 1
		}
		if err := validateItem(&in.Item); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid request", err.Error(), r.URL.Path)
			return
		}
		nested := -1
		if in.NestedIn != nil {
			nested = *in.NestedIn
			if nested < 0 || nested >= len(req.Placements) {
				writeProblem(w, http.StatusBadRequest, "invalid request",
					fmt.Sprintf("placement %d: nestedIn out of range", i), r.URL.Path)
				return
			}
		}
		it := itemFromIn(in.Item)
		plan.Placements = append(plan.Placements, pack.Placement{
			Unit:       pack.Unit{Item: it, ID: it.ID + "#0"},
			Pos:        pack.Point{X: in.X, Y: in.Y, Z: in.Z},
			Horizontal: in.Horizontal,
			NestedIn:   nested,
		})
	}
	violations := pack.NewOptimizer(s.Rules).AuditPlan(plan.Spec, plan)
	resp := model.ValidateResponse{Valid: true}
	for _, v := range violations {
		if v.Hard {
			resp.Valid = false
		}
		resp.Violations = append(resp.Violations, model.WarningOut{Kind: v.Kind, Severity: v.Severity, Message: v.Message})
	}
	writeJSON(w, http.StatusOK, resp)
}

// FleetSuggestHandler handles POST /v1/fleet/suggest.
func (s *Server) FleetSuggestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	var req model.FleetSuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if len(req.Items) == 0 || len(req.Containers) == 0 {
		writeProblem(w, http.StatusBadRequest, "invalid request", "items and containers must not be empty", r.URL.Path)
		return
	}
	for i := range req.Items {
		if err := validateItem(&req.Items[i]); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid request", err.Error(), r.URL.Path)
			return
		}
	}
	for i := range req.Containers {
		if err := validateContainerType(&req.Containers[i]); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid request", err.Error(), r.URL.Path)
			return
		}
	}
	var weight, volume float64
	for _, in := range req.Items {
		it := itemFromIn(in)
		weight += it.Weight * float64(it.Quantity)
		volume += it.UnitVolumeM3() * float64(it.Quantity)
	}
	fleet := pack.SuggestFleet(specsFromTypes(req.Containers), weight, volume)
	if len(fleet) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"suggestion": nil})
		return
	}
	sug := model.FleetSuggestion{Count: len(fleet)}
	index := map[string]int{}
	for _, spec := range fleet {
		sug.Cost += spec.CostPerKm
		if i, ok := index[spec.Name]; ok {
			sug.Fleet[i].Count++
			continue
		}
		index[spec.Name] = len(sug.Fleet)
		sug.Fleet = append(sug.Fleet, model.FleetEntry{Type: typeFromSpec(spec), Count: 1})
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestion": sug})
}

// ContainersHandler handles /v1/containers (GET list, POST upsert).
func (s *Server) ContainersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListContainerTypes(ctx, tenant)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		if !s.getPrincipal(r).CanPlan() {
			writeProblem(w, http.StatusForbidden, "forbidden", "admin or planner role required", r.URL.Path)
			return
		}
		var in model.ContainerTypeIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateContainerType(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid request", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.UpsertContainerType(ctx, tenant, in); err != nil {
			writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, in)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
	}
}

// ContainerByIDHandler handles DELETE /v1/containers/{name}.
func (s *Server) ContainerByIDHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/containers/")
	if name == "" || r.Method != http.MethodDelete {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "forbidden", "admin role required", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	if err := s.Store.DeleteContainerType(ctx, tenant, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "container type not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscriptionsHandler handles /v1/subscriptions (POST create, GET list).
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodPost:
		if !s.getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "forbidden", "admin role required", r.URL.Path)
			return
		}
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "invalid request", "url and events are required", r.URL.Path)
			return
		}
		req.TenantID = tenant
		sub, err := s.Store.CreateSubscription(ctx, req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			_, _ = fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(ctx, tenant, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || r.Method != http.MethodDelete {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "forbidden", "admin role required", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	if err := s.Store.DeleteSubscription(ctx, tenant, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "subscription not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlanStatsHandler handles GET /v1/admin/plans/stats.
func (s *Server) PlanStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "forbidden", "admin role required", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	stats, err := s.Store.PlanStats(ctx, tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HealthHandler handles /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler handles /readyz. Postgres-backed servers also check the
// database connection.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "not ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
