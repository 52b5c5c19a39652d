/*
scenarios.go - Demo scenario endpoints

PURPOSE:
  Exposes the factory presets (carton production in several variants) so
  a fresh service has something to simulate.

AVAILABLE SCENARIOS:
  box-demo            Baseline: die making, then printing, cutting, gluing
  box-variance        Same plant with random productivity variance
  box-cash-crunch     Client pays at the end, no starting cash
  box-weekly-payroll  Weekly payroll, end-of-run depreciation and overhead

HOW LOADING WORKS:
  1. Convert the preset document (validates it like any scenario)
  2. Replace the stored catalog with the preset's catalog
  3. Upsert the preset's order
  The order can then be run with {"order_id": "..."}.

USAGE VIA API:
  POST /api/scenarios/box-demo/load

NOTE:
  Loading replaces the catalog. Only use in development/demo environments.

SEE ALSO:
  - factory/presets.go: Preset documents
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/production-engine/factory"
)

// ListScenarios returns available presets.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	presets := factory.Presets()
	dtos := make([]ScenarioDTO, len(presets))
	for i, p := range presets {
		dtos[i] = toScenarioDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario writes a preset's catalog and order into the repository.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, ok := factory.PresetDocument(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}

	sc, err := h.Factory.FromDocument(doc)
	if err != nil {
		writeDomainError(w, "Invalid scenario", err)
		return
	}

	ctx := r.Context()
	if err := h.Repo.SaveCatalog(ctx, &sc.Catalog); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save catalog", err)
		return
	}
	if err := h.Repo.SaveOrder(ctx, &sc.Order); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save order", err)
		return
	}

	writeJSON(w, http.StatusOK, LoadScenarioDTO{Status: "loaded", Scenario: name, OrderID: sc.Order.ID})
}
