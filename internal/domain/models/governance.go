// internal/domain/models/governance.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review record types and statuses.
const (
	GovernanceReview = "review"

	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Audit actions written by the governance pipeline.
const (
	ActionCampaignValidated = "campaign_validated"
	ActionCampaignSubmitted = "campaign_submitted"
	ActionCampaignPublished = "campaign_published"
	ActionReviewDecided     = "review_decided"
	ActionExportSucceeded   = "export_succeeded"
	ActionExportBlocked     = "export_blocked"
	ActionUserCreated       = "user_created"
	ActionUserUpdated       = "user_updated"
	ActionLoginSucceeded    = "login_succeeded"
	ActionLoginFailed       = "login_failed"
	ActionLoggedOut         = "logged_out"
)

// GovernanceRecord is a document in the shared governance collection.
//
// The collection is dual-purpose: it holds both immutable audit entries
// (Action/Hash set, Type empty) and human review records (Type "review",
// Action/Hash empty). Which fields are present decides which kind a
// document is; IsAudit and IsReview encode that rule in one place.
//
// Audit entries are append-only by contract: once written they are never
// mutated, and the background sweep re-verifies their hashes.
type GovernanceRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Audit entry fields.
	Action     string              `bson:"action,omitempty" json:"action,omitempty"`
	ResourceID string              `bson:"resource_id,omitempty" json:"resource_id,omitempty"`
	UserID     *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Timestamp  time.Time           `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	Metadata   map[string]string   `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Hash       string              `bson:"hash,omitempty" json:"hash,omitempty"`

	// Review record fields.
	Type        string              `bson:"type,omitempty" json:"type,omitempty"`
	Status      string              `bson:"status,omitempty" json:"status,omitempty"`
	CampaignID  *primitive.ObjectID `bson:"campaign_id,omitempty" json:"campaign_id,omitempty"`
	SubmittedBy *primitive.ObjectID `bson:"submitted_by,omitempty" json:"submitted_by,omitempty"`
	ReviewType  string              `bson:"review_type,omitempty" json:"review_type,omitempty"`
	Priority    string              `bson:"priority,omitempty" json:"priority,omitempty"`
	Notes       string              `bson:"notes,omitempty" json:"notes,omitempty"`
	DecidedBy   *primitive.ObjectID `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
	DecidedAt   *time.Time          `bson:"decided_at,omitempty" json:"decided_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsAudit reports whether the record is an immutable audit entry.
func (g *GovernanceRecord) IsAudit() bool { return g.Action != "" }

// IsReview reports whether the record is a human review item.
func (g *GovernanceRecord) IsReview() bool { return g.Type == GovernanceReview }

// AuditActions lists every action the pipeline writes, in pipeline
// order, for filter dropdowns.
var AuditActions = []string{
	ActionCampaignValidated,
	ActionCampaignSubmitted,
	ActionCampaignPublished,
	ActionReviewDecided,
	ActionExportSucceeded,
	ActionExportBlocked,
	ActionUserCreated,
	ActionUserUpdated,
	ActionLoginSucceeded,
	ActionLoginFailed,
	ActionLoggedOut,
}

// Review priorities accepted by submit-for-review.
var ReviewPriorities = []string{"low", "normal", "high"}

// ReviewTypes accepted by submit-for-review.
var ReviewTypes = []string{"standard", "expedited"}

// IsValidReviewPriority reports whether p is an accepted priority.
func IsValidReviewPriority(p string) bool {
	for _, v := range ReviewPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// IsValidReviewType reports whether t is an accepted review type.
func IsValidReviewType(t string) bool {
	for _, v := range ReviewTypes {
		if v == t {
			return true
		}
	}
	return false
}
