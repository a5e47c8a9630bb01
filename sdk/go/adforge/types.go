package adforge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Campaign is the marketing campaign entity shared by all pipeline agents.
type Campaign struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Product           Product   `json:"product"`
	Goals             Goals     `json:"goals"`
	Geo               []string  `json:"geo"`
	Budget            Budget    `json:"budget"`
	TrafficSources    []string  `json:"traffic_sources,omitempty"`
	Constraints       string    `json:"constraints,omitempty"`
	BrandRequirements string    `json:"brand_requirements,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	Status            string    `json:"status"`
}

// Product describes the promoted product.
type Product struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category,omitempty"`
	Images      []string `json:"images,omitempty"`
	LandingPage string   `json:"landing_page,omitempty"`
	ShortDesc   string   `json:"short_desc,omitempty"`
}

// Goals holds the campaign's primary KPI and its target value.
type Goals struct {
	PrimaryKPI string   `json:"primary_kpi"`
	TargetCPA  *float64 `json:"target_cpa,omitempty"`
	TargetROAS *float64 `json:"target_roas,omitempty"`
	TargetROI  *float64 `json:"target_roi,omitempty"`
}

// Budget holds daily and total campaign budgets.
type Budget struct {
	Daily float64 `json:"daily"`
	Total float64 `json:"total"`
}

// AgentStatus is the readiness/completion view of one pipeline agent.
type AgentStatus struct {
	Agent           string   `json:"agent"`
	Ready           bool     `json:"ready"`
	Complete        bool     `json:"complete"`
	Pending         []string `json:"pending"`
	StaleDownstream []string `json:"stale_downstream,omitempty"`
	HasOutput       bool     `json:"has_output"`
}

// RunResult is the outcome of a successful agent run.
type RunResult struct {
	Agent  string          `json:"agent"`
	Output json.RawMessage `json:"output"`
	Reply  string          `json:"reply,omitempty"`
	Logs   []string        `json:"logs,omitempty"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Session is the result of exchanging a Google credential for an API token.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
}
