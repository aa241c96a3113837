// internal/domain/models/campaign.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign statuses. The status state machine
// (draft → in_review → approved → active/completed) is owned by the
// review workflow; transitions go through the campaign store's
// conditional update so concurrent submissions cannot double-fire.
const (
	CampaignDraft     = "draft"
	CampaignInReview  = "in_review"
	CampaignApproved  = "approved"
	CampaignActive    = "active"
	CampaignCompleted = "completed"
	CampaignArchived  = "archived"
)

// Activity statuses. Only approved activities are eligible for export.
const (
	ActivityPlanned   = "planned"
	ActivityApproved  = "approved"
	ActivityCancelled = "cancelled"
)

// Activity is one per-period line item inside a campaign plan: the unit
// the export preflight gate filters and the export artifact serializes.
type Activity struct {
	Title   string             `bson:"title" json:"title"`
	Status  string             `bson:"status" json:"status"`
	OwnerID primitive.ObjectID `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Start   string             `bson:"start" json:"start"` // YYYY-MM-DD
	Due     string             `bson:"due" json:"due"`     // YYYY-MM-DD
	Channel string             `bson:"channel,omitempty" json:"channel,omitempty"`
	Period  string             `bson:"period" json:"period"` // e.g. "2026-W09"
}

// Campaign is a planned marketing campaign. Free-form planning fields
// (title, description, budget, due date, tags) are validated by the
// governance validation engine rather than by schema alone.
type Campaign struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	TitleCI     string              `bson:"title_ci" json:"title_ci"` // lowercase, diacritics-stripped
	Description string              `bson:"description" json:"description"`
	Status      string              `bson:"status" json:"status"`
	AssignedTo  *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	TeamID      string              `bson:"team_id,omitempty" json:"team_id,omitempty"`
	Budget      *float64            `bson:"budget,omitempty" json:"budget,omitempty"`
	DueDate     time.Time           `bson:"due_date" json:"due_date"`
	Tags        []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	Channel     string              `bson:"channel,omitempty" json:"channel,omitempty"`
	Activities  []Activity          `bson:"activities,omitempty" json:"activities,omitempty"`

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Exportable reports whether the campaign's status permits an export
// attempt at all (the preflight gate still decides row by row).
func (c *Campaign) Exportable() bool {
	return c.Status == CampaignApproved || c.Status == CampaignActive
}

// ActivitiesByPeriod groups the campaign's activities by period label,
// preserving first-seen period order.
func (c *Campaign) ActivitiesByPeriod() ([]string, map[string][]Activity) {
	order := make([]string, 0, 4)
	byPeriod := make(map[string][]Activity)
	for _, a := range c.Activities {
		if _, seen := byPeriod[a.Period]; !seen {
			order = append(order, a.Period)
		}
		byPeriod[a.Period] = append(byPeriod[a.Period], a)
	}
	return order, byPeriod
}
