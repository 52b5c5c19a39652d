/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Simulations:
    SimulationRequest (used by POST /api/simulations and POST /api/runs)

  Runs:
    RunDTO

  Scenarios:
    ScenarioDTO, LoadScenarioDTO

  Catalog:
    factory.CatalogDocument is returned as is

VALIDATION:
  Validation is done in handlers and the scenario factory, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/scenario.go: ScenarioDocument, SettingsDocument
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/production-engine/factory"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SimulationRequest names exactly one scenario source: a preset, an inline
// scenario document, or an order already stored with the catalog. Settings,
// when present, replace the source's own settings.
type SimulationRequest struct {
	Preset   string                    `json:"preset,omitempty"`
	Scenario *factory.ScenarioDocument `json:"scenario,omitempty"`
	OrderID  string                    `json:"order_id,omitempty"`
	Settings *factory.SettingsDocument `json:"settings,omitempty"`
}

// RunDTO represents a stored run. Result is the report once completed.
type RunDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	OrderID     string          `json:"order_id"`
	Status      string          `json:"status"`
	Outcome     string          `json:"outcome,omitempty"`
	TotalHours  int             `json:"total_hours"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   string          `json:"created_at"`
	StartedAt   string          `json:"started_at,omitempty"`
	CompletedAt string          `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// LoadScenarioDTO is returned after a preset is written to the store.
type LoadScenarioDTO struct {
	Status   string `json:"status"`
	Scenario string `json:"scenario"`
	OrderID  string `json:"order_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRunDTO(r production.Run, withResult bool) RunDTO {
	dto := RunDTO{
		ID:         r.ID,
		Name:       r.Name,
		OrderID:    r.OrderID,
		Status:     string(r.Status),
		Outcome:    r.Outcome,
		TotalHours: r.TotalHours,
		Error:      r.Error,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
	if r.StartedAt != nil {
		dto.StartedAt = r.StartedAt.Format(time.RFC3339)
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	if withResult && r.ResultJSON != "" {
		dto.Result = json.RawMessage(r.ResultJSON)
	}
	return dto
}

func toScenarioDTO(p factory.Preset) ScenarioDTO {
	return ScenarioDTO{
		ID:          p.Name,
		Name:        p.Title,
		Description: p.Description,
		Category:    p.Category,
	}
}
