package billing

import (
	"fmt"
	"time"
)

// Plan describes what a paid order entitles the buyer to. Credit packs set
// Credits; subscriptions set Tier and Duration.
type Plan struct {
	ID       string
	Name     string
	Credits  int
	Tier     string
	Duration time.Duration
}

// Catalog of purchasable plans, keyed by the plan ID stored on orders at
// checkout time. Prices live with the checkout service, not here.
var plans = map[string]Plan{
	"scan-pack-10":  {ID: "scan-pack-10", Name: "10 Scan Pack", Credits: 10},
	"scan-pack-50":  {ID: "scan-pack-50", Name: "50 Scan Pack", Credits: 50},
	"herbalist-1m":  {ID: "herbalist-1m", Name: "Herbalist Monthly", Tier: "herbalist", Duration: 30 * 24 * time.Hour},
	"herbalist-12m": {ID: "herbalist-12m", Name: "Herbalist Yearly", Tier: "herbalist", Duration: 365 * 24 * time.Hour},
}

// PlanByID returns the catalog entry for id, or false when the plan is
// unknown (stale order, catalog drift).
func PlanByID(id string) (Plan, bool) {
	p, ok := plans[id]
	return p, ok
}

// GrantForOrder builds the entitlement a paid order should produce.
func GrantForOrder(order *Order, now time.Time) (Grant, error) {
	plan, ok := PlanByID(order.PlanID)
	if !ok {
		return Grant{}, fmt.Errorf("order %s references unknown plan %q", order.ID, order.PlanID)
	}
	g := Grant{
		UserID:    order.UserID,
		OrderID:   order.ID,
		PlanID:    plan.ID,
		Credits:   plan.Credits,
		Tier:      plan.Tier,
		GrantedAt: now,
	}
	if plan.Duration > 0 {
		g.ExpiresAt = now.Add(plan.Duration)
	}
	return g, nil
}
