// Package model defines the core domain types for Adforge.
//
// Types use strong typing (UUIDs, time.Time, enums) and avoid interface{}
// wherever possible. The one deliberate exception is AgentOutput: agent
// payloads are agent-defined JSON consumed by display code only, so they
// stay opaque (json.RawMessage) rather than per-agent structs.
package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// Valid reports whether s is a known campaign status.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted:
		return true
	}
	return false
}

// KPI is the primary optimization target of a campaign. Exactly one of the
// Goals target fields must be set, and it must match the chosen KPI.
type KPI string

const (
	KPICPA  KPI = "CPA"
	KPIROAS KPI = "ROAS"
	KPIROI  KPI = "ROI"
)

// Valid reports whether k is a known KPI.
func (k KPI) Valid() bool {
	switch k {
	case KPICPA, KPIROAS, KPIROI:
		return true
	}
	return false
}

// Product describes the product being advertised.
type Product struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
	LandingPage string   `json:"landing_page"`
	ShortDesc   string   `json:"short_desc"`
}

// Goals holds the KPI target for a campaign. The pointer fields are
// mutually exclusive: the one matching PrimaryKPI must be set.
type Goals struct {
	PrimaryKPI KPI      `json:"primary_kpi"`
	TargetCPA  *float64 `json:"target_cpa,omitempty"`
	TargetROAS *float64 `json:"target_roas,omitempty"`
	TargetROI  *float64 `json:"target_roi,omitempty"`
}

// Budget holds daily and total spend limits in the account currency.
type Budget struct {
	Daily float64 `json:"daily"`
	Total float64 `json:"total"`
}

// Campaign is the single active campaign for a session. Replacing it
// invalidates every agent output recorded against it.
type Campaign struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Product           Product        `json:"product"`
	Goals             Goals          `json:"goals"`
	Geo               []string       `json:"geo"`
	Budget            Budget         `json:"budget"`
	TrafficSources    []string       `json:"traffic_sources"`
	Constraints       string         `json:"constraints"`
	BrandRequirements string         `json:"brand_requirements"`
	CreatedAt         time.Time      `json:"created_at"`
	Status            CampaignStatus `json:"status"`
}

// Validate checks the campaign invariants. It does not mutate the campaign —
// call Normalize first to dedupe the free-form sets.
func (c Campaign) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("campaign name is required")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("unknown campaign status %q", c.Status)
	}
	if c.Product.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if c.Product.Price < 0 {
		return fmt.Errorf("product price must not be negative")
	}
	if c.Product.LandingPage != "" {
		u, err := url.Parse(c.Product.LandingPage)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("landing_page must be an http or https URL")
		}
	}
	if err := c.Goals.Validate(); err != nil {
		return err
	}
	if len(c.Geo) == 0 {
		return fmt.Errorf("at least one geo region is required")
	}
	for _, g := range c.Geo {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("geo regions must not be blank")
		}
	}
	if c.Budget.Daily < 0 || c.Budget.Total < 0 {
		return fmt.Errorf("budget amounts must not be negative")
	}
	if c.Budget.Daily > c.Budget.Total {
		return fmt.Errorf("daily budget %.2f exceeds total budget %.2f", c.Budget.Daily, c.Budget.Total)
	}
	return nil
}

// Validate checks that exactly the target field matching PrimaryKPI is set.
func (g Goals) Validate() error {
	if !g.PrimaryKPI.Valid() {
		return fmt.Errorf("unknown primary_kpi %q", g.PrimaryKPI)
	}
	type target struct {
		kpi KPI
		val *float64
	}
	targets := []target{
		{KPICPA, g.TargetCPA},
		{KPIROAS, g.TargetROAS},
		{KPIROI, g.TargetROI},
	}
	for _, t := range targets {
		if t.kpi == g.PrimaryKPI {
			if t.val == nil {
				return fmt.Errorf("target for primary_kpi %s is required", g.PrimaryKPI)
			}
			if *t.val <= 0 {
				return fmt.Errorf("target for primary_kpi %s must be positive", g.PrimaryKPI)
			}
		} else if t.val != nil {
			return fmt.Errorf("target for %s set but primary_kpi is %s", t.kpi, g.PrimaryKPI)
		}
	}
	return nil
}

// Normalize dedupes the free-form string sets (geo, traffic sources) in
// place, preserving first-seen order, and trims surrounding whitespace.
func (c *Campaign) Normalize() {
	c.Geo = dedupe(c.Geo)
	c.TrafficSources = dedupe(c.TrafficSources)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
