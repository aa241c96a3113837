// internal/app/system/campaignval/report.go

package campaignval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/planhub/internal/domain/models"
)

// Report is the advisory compliance view of a campaign: the same staged
// findings grouped by category, plus improvement suggestions. Reports
// never block an action; they exist for reviewers and dashboards.
type Report struct {
	Content     []string
	Business    []string
	Permission  []string
	Suggestions []string
}

// ComplianceReport fetches the actor and builds the advisory report for
// the given payload.
func (e *Engine) ComplianceReport(ctx context.Context, vc Context) (Report, error) {
	actor, err := e.users.GetByID(ctx, vc.UserID)
	if err != nil {
		return Report{}, fmt.Errorf("load actor: %w", err)
	}
	return BuildReport(vc.Data, actor, time.Now()), nil
}

// BuildReport runs the content, business and permission stages over
// already-fetched data and folds errors and warnings together per
// category. Advisory output does not distinguish blocking severity.
func BuildReport(d Data, actor *models.User, now time.Time) Report {
	var rep Report

	var content Result
	contentPolicy(d, &content)
	rep.Content = append(content.Errors, content.Warnings...)

	var business Result
	businessRules(d, now, &business)
	rep.Business = append(business.Errors, business.Warnings...)

	var permission Result
	actorPermission(actor, d, &permission)
	rep.Permission = append(permission.Errors, permission.Warnings...)

	if d.Budget == nil {
		rep.Suggestions = append(rep.Suggestions, "add a budget")
	}
	if len(d.Tags) == 0 {
		rep.Suggestions = append(rep.Suggestions, "add tags")
	}
	if strings.TrimSpace(d.AssignedTo) == "" {
		rep.Suggestions = append(rep.Suggestions, "assign an owner")
	}
	return rep
}
