// internal/app/system/wrike/export.go

// Package wrike is the export preflight gate: the all-or-nothing
// validation step that runs immediately before campaign activities are
// allowed to leave the system as an export artifact.
//
// The gate is pure. It decides over already-fetched data, writes
// nothing, and its verdict is what callers audit and act on. Identity
// checking is deliberately strict: one bad export identity anywhere in
// a batch blocks the whole batch, because a partially exported plan is
// worse than a rejected one when the target is an external system of
// record.
package wrike

import (
	"fmt"

	"github.com/dalemusser/planhub/internal/domain/models"
)

// ExportRow is one line of the export artifact.
type ExportRow struct {
	Title            string
	AssigneeIdentity string
	Start            string
	Due              string
	Channel          string
}

// Result is the gate's verdict for a single period. Rows is populated
// only on success: a failed period never leaks partial rows.
type Result struct {
	Success      bool
	Rows         []ExportRow
	Errors       []string
	InvalidUsers []string
}

// PeriodRows pairs a period label with its validated rows.
type PeriodRows struct {
	Label string
	Rows  []ExportRow
}

// PlanResult is the gate's verdict for a multi-period export.
type PlanResult struct {
	Success      bool
	Periods      []PeriodRows
	Errors       []string
	InvalidUsers []string
}

// Period validates one period's activities against their owners.
//
// Only activities whose status is exactly "approved" are considered.
// Each approved activity must resolve to an owner whose export identity
// equals the owner's first and last name exactly; every mismatch is
// collected (processing never stops at the first problem) and any
// mismatch fails the entire period with no rows, even for activities
// that individually validated.
func Period(label string, activities []models.Activity, usersByID map[string]*models.User) Result {
	var approved []models.Activity
	for _, a := range activities {
		if a.Status == models.ActivityApproved {
			approved = append(approved, a)
		}
	}
	if len(approved) == 0 {
		return Result{
			Errors: []string{fmt.Sprintf("no approved activities in period %q", label)},
		}
	}

	var (
		rows         []ExportRow
		errs         []string
		invalidUsers []string
	)
	for _, a := range approved {
		owner := usersByID[a.OwnerID.Hex()]
		if a.OwnerID.IsZero() || owner == nil {
			errs = append(errs, fmt.Sprintf("unresolved owner for activity %q in period %q", a.Title, label))
			continue
		}

		if !owner.WrikeNameValid() {
			invalidUsers = append(invalidUsers, identityMismatch(owner))
			continue
		}

		rows = append(rows, ExportRow{
			Title:            a.Title,
			AssigneeIdentity: owner.WrikeName,
			Start:            a.Start,
			Due:              a.Due,
			Channel:          a.Channel,
		})
	}

	// Any identity mismatch fails the whole period: no rows at all.
	if len(invalidUsers) > 0 {
		return Result{
			Errors:       []string{identitySummary(len(invalidUsers))},
			InvalidUsers: invalidUsers,
		}
	}
	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	if len(rows) == 0 {
		return Result{
			Errors: []string{fmt.Sprintf("no exportable rows in period %q", label)},
		}
	}
	return Result{Success: true, Rows: rows}
}

// Plan validates every period of a multi-period export and aggregates
// identity failures across them. If any period fails identity
// validation, the entire plan fails: repeated user messages are
// deduplicated, and no period's rows are returned.
func Plan(order []string, byPeriod map[string][]models.Activity, usersByID map[string]*models.User) PlanResult {
	if len(order) == 0 {
		return PlanResult{Errors: []string{"no periods to export"}}
	}

	var (
		periods      []PeriodRows
		errs         []string
		invalidUsers []string
		seen         = make(map[string]bool)
	)
	for _, label := range order {
		res := Period(label, byPeriod[label], usersByID)
		for _, msg := range res.InvalidUsers {
			if !seen[msg] {
				seen[msg] = true
				invalidUsers = append(invalidUsers, msg)
			}
		}
		if len(res.InvalidUsers) > 0 {
			// The period's own count summary is superseded by the
			// plan-level summary computed after deduplication.
			continue
		}
		if !res.Success {
			errs = append(errs, res.Errors...)
			continue
		}
		periods = append(periods, PeriodRows{Label: label, Rows: res.Rows})
	}

	if len(invalidUsers) > 0 {
		return PlanResult{
			Errors:       []string{identitySummary(len(invalidUsers))},
			InvalidUsers: invalidUsers,
		}
	}
	if len(errs) > 0 {
		return PlanResult{Errors: errs}
	}
	return PlanResult{Success: true, Periods: periods}
}

// identityMismatch renders the human-readable message planners see for
// one owner whose export identity does not match their name.
func identityMismatch(owner *models.User) string {
	return fmt.Sprintf("%s (%s): expected %q, got %q",
		owner.DisplayName, owner.Email, owner.FullName(), owner.WrikeName)
}

func identitySummary(n int) string {
	return fmt.Sprintf("%d user(s) failed identity validation", n)
}
