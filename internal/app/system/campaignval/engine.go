// internal/app/system/campaignval/engine.go

// Package campaignval is the governance validation engine: a staged
// pipeline over a campaign payload that collects blocking errors and
// advisory warnings. Stages never short-circuit; a caller always gets
// every applicable problem in one pass so planners can fix everything
// in a single round trip.
package campaignval

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	campaignstore "github.com/dalemusser/planhub/internal/app/store/campaigns"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Type selects which validation run is being performed. Publish runs
// every stage; draft and preview skip publish readiness.
type Type string

const (
	TypeDraft   Type = "draft"
	TypePreview Type = "preview"
	TypePublish Type = "publish"
)

// Data is the free-form campaign payload under validation, shaped the
// way forms deliver it: the due date arrives as a string and must parse.
type Data struct {
	Title       string
	Description string
	AssignedTo  string // hex user ID of the assignee
	DueDate     string // RFC 3339 or YYYY-MM-DD
	Budget      *float64
	Tags        []string
	CreatedAt   time.Time // zero means the campaign is being created now
}

// Context is the input to one validation run.
type Context struct {
	CampaignID primitive.ObjectID // zero for a campaign not yet stored
	Data       Data
	Type       Type
	UserID     primitive.ObjectID
}

// Result collects the pipeline's findings. Errors block the action;
// warnings never do.
type Result struct {
	Errors   []string
	Warnings []string
}

// IsValid reports whether the run produced no blocking errors.
func (r Result) IsValid() bool { return len(r.Errors) == 0 }

func (r *Result) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// contentDenylist is the fixed set of flagged marketing claims checked
// case-insensitively against title and description. Matches warn, never
// block.
var contentDenylist = []string{
	"guaranteed",
	"risk-free",
	"act now",
	"limited time",
}

// Business-rule bounds.
const (
	maxTitleLen       = 100
	maxDescriptionLen = 1000
	budgetWarnAbove   = 1_000_000
	maxTimelineDays   = 365
)

// Engine runs validations against the document store: it loads the
// acting user and, for publish runs, the stored campaign. The staged
// checks themselves are pure; Run exposes them over already-fetched
// data.
type Engine struct {
	users     *userstore.Store
	campaigns *campaignstore.Store
}

func New(db *mongo.Database) *Engine {
	return &Engine{
		users:     userstore.New(db),
		campaigns: campaignstore.New(db),
	}
}

// Validate fetches the actor (and the stored campaign for publish runs)
// and executes the staged pipeline. The returned error reports lookup
// or infrastructure failures only; validation findings travel inside
// the Result.
func (e *Engine) Validate(ctx context.Context, vc Context) (Result, error) {
	actor, err := e.users.GetByID(ctx, vc.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("load actor: %w", err)
	}

	var storedStatus string
	if vc.Type == TypePublish && !vc.CampaignID.IsZero() {
		c, err := e.campaigns.GetByID(ctx, vc.CampaignID)
		if err == mongo.ErrNoDocuments {
			return Result{}, fmt.Errorf("load campaign %s: %w", vc.CampaignID.Hex(), err)
		}
		if err != nil {
			return Result{}, fmt.Errorf("load campaign %s: %w", vc.CampaignID.Hex(), err)
		}
		storedStatus = c.Status
	}

	return Run(vc.Type, vc.Data, actor, storedStatus, time.Now()), nil
}

// Run executes every applicable stage over already-fetched data. All
// stages append to the shared result; none aborts the pipeline.
func Run(vt Type, d Data, actor *models.User, storedStatus string, now time.Time) Result {
	var res Result
	requiredFields(d, now, &res)
	contentPolicy(d, &res)
	businessRules(d, now, &res)
	actorPermission(actor, d, &res)
	if vt == TypePublish {
		publishReadiness(storedStatus, d, &res)
	}
	return res
}

// requiredFields checks that the core planning fields are present and
// that the due date lies strictly in the future.
func requiredFields(d Data, now time.Time, res *Result) {
	if strings.TrimSpace(d.Title) == "" {
		res.errorf("title is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		res.errorf("description is required")
	}
	if strings.TrimSpace(d.AssignedTo) == "" {
		res.errorf("assignee is required")
	}
	if strings.TrimSpace(d.DueDate) == "" {
		res.errorf("due date is required")
		return
	}

	due, ok := ParseDueDate(d.DueDate)
	if !ok {
		res.errorf("due date is invalid")
		return
	}
	if !due.After(now) {
		res.errorf("due date must be in the future")
	}
}

// contentPolicy enforces length bounds and scans for denylisted claims.
func contentPolicy(d Data, res *Result) {
	if len(d.Title) > maxTitleLen {
		res.errorf("title must be %d characters or fewer", maxTitleLen)
	}
	if len(d.Description) > maxDescriptionLen {
		res.warnf("description exceeds %d characters", maxDescriptionLen)
	}

	haystack := strings.ToLower(d.Title + " " + d.Description)
	for _, term := range contentDenylist {
		if strings.Contains(haystack, term) {
			res.warnf("content contains flagged term %q", term)
		}
	}
}

// businessRules bounds the budget and the campaign timeline.
func businessRules(d Data, now time.Time, res *Result) {
	if d.Budget != nil {
		if *d.Budget < 0 {
			res.errorf("budget cannot be negative")
		} else if *d.Budget > budgetWarnAbove {
			res.warnf("budget exceeds %s", formatAmount(budgetWarnAbove))
		}
	}

	due, ok := ParseDueDate(d.DueDate)
	if !ok {
		return // required-fields already reported the date problem
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = now
	}
	days := int(math.Ceil(due.Sub(created).Hours() / 24))
	if days < 1 {
		res.errorf("campaign timeline must be at least one day")
	} else if days > maxTimelineDays {
		res.warnf("campaign timeline exceeds %d days", maxTimelineDays)
	}
}

// actorPermission requires an editor or admin to touch campaign data at
// all, and admin or reviewer to assign work to somebody else.
func actorPermission(actor *models.User, d Data, res *Result) {
	if actor == nil {
		res.errorf("editor or admin role required to modify campaigns")
		return
	}
	if !actor.HasRole(models.RoleEditor) && !actor.HasRole(models.RoleAdmin) {
		res.errorf("editor or admin role required to modify campaigns")
	}
	assignee := strings.TrimSpace(d.AssignedTo)
	if assignee != "" && assignee != actor.ID.Hex() {
		if !actor.HasRole(models.RoleAdmin) && !actor.HasRole(models.RoleReviewer) {
			res.errorf("assigning to another user requires admin or reviewer role")
		}
	}
}

// publishReadiness gates the transition into the externally owned
// status machine: publishing requires an assignee and a campaign that
// has already been approved.
func publishReadiness(storedStatus string, d Data, res *Result) {
	if strings.TrimSpace(d.AssignedTo) == "" {
		res.errorf("assignee must be set before publishing")
	}
	if storedStatus != models.CampaignApproved {
		res.errorf("campaign must be approved before publishing (current status %q)", storedStatus)
	}
}

// ParseDueDate accepts the date shapes forms and API callers send.
func ParseDueDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatAmount(n int) string {
	// 1000000 -> "1,000,000"
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
