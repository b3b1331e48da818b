package api

import (
	"net/http"

	"loadplan/internal/ingest"
	"loadplan/internal/model"
)

// ImportPlanHandler handles POST /v1/plans/import. The body is a CSV
// cargo manifest; container types come from the tenant catalog, filtered
// by repeated ?container= params when present. Planning options arrive
// as query params.
func (s *Server) ImportPlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "method not allowed", "", r.URL.Path)
		return
	}
	if !s.getPrincipal(r).CanPlan() {
		writeProblem(w, http.StatusForbidden, "forbidden", "admin or planner role required", r.URL.Path)
		return
	}
	items, err := ingest.ReadItems(r.Body)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid manifest", err.Error(), r.URL.Path)
		return
	}

	ctx, tenant := s.withTenant(r)
	catalog, err := s.Store.ListContainerTypes(ctx, tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error(), r.URL.Path)
		return
	}
	q := r.URL.Query()
	containers := catalog
	if names := q["container"]; len(names) > 0 {
		wanted := map[string]struct{}{}
		for _, n := range names {
			wanted[n] = struct{}{}
		}
		containers = containers[:0:0]
		for _, c := range catalog {
			if _, ok := wanted[c.Name]; ok {
				containers = append(containers, c)
			}
		}
	}
	if len(containers) == 0 {
		writeProblem(w, http.StatusBadRequest, "invalid request", "no matching container types in catalog", r.URL.Path)
		return
	}

	req := model.PlanRequest{
		ExternalRef: q.Get("externalRef"),
		Items:       items,
		Containers:  containers,
		Options: model.PlanningOptions{
			RouteStrategy:    q.Get("routeStrategy"),
			LoadingSequence:  q.Get("loadingSequence"),
			AllowMixedRoutes: q.Get("allowMixedRoutes") == "true",
		},
	}
	s.runPlan(w, r, req)
}
