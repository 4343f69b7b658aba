package usecases

import (
	"nexart.backend/internal/domain/entities"
)

// PlanSpec fixes the entitlements of a plan. MonthlyLimit and MaxKeys on an
// account are always a copy of the catalog entry for its plan; nothing else
// may set them.
type PlanSpec struct {
	Name         string
	MonthlyLimit int
	MaxKeys      int
}

// The plan catalog. Enterprise shares the calendar-month window with the
// other tiers; its ceiling is high enough that the limiter in front of the
// render farm bites first.
var planCatalog = map[entities.Plan]PlanSpec{
	entities.PlanFree:       {Name: "Free", MonthlyLimit: 100, MaxKeys: 2},
	entities.PlanPro:        {Name: "Pro", MonthlyLimit: 5000, MaxKeys: 5},
	entities.PlanProPlus:    {Name: "Pro+", MonthlyLimit: 25000, MaxKeys: 10},
	entities.PlanEnterprise: {Name: "Enterprise", MonthlyLimit: 250000, MaxKeys: 25},
}

// PlanEntitlements resolves a plan to its catalog entry
func PlanEntitlements(plan entities.Plan) (PlanSpec, bool) {
	spec, ok := planCatalog[plan]
	return spec, ok
}

// PriceTable maps billing provider price ids to plans. It comes from
// configuration; an unmapped price must never be silently assigned a plan.
type PriceTable map[string]entities.Plan

// Resolve maps a provider price id to a plan and its entitlements
func (t PriceTable) Resolve(priceID string) (entities.Plan, PlanSpec, bool) {
	plan, ok := t[priceID]
	if !ok {
		return "", PlanSpec{}, false
	}
	spec, ok := planCatalog[plan]
	if !ok {
		return "", PlanSpec{}, false
	}
	return plan, spec, true
}
