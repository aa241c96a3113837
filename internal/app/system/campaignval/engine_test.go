// internal/app/system/campaignval/engine_test.go

package campaignval_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/campaignval"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- helpers ---

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func editor() *models.User {
	return &models.User{
		ID:    primitive.NewObjectID(),
		Roles: map[string]bool{models.RoleEditor: true},
	}
}

func withRoles(roles ...string) *models.User {
	u := &models.User{ID: primitive.NewObjectID(), Roles: map[string]bool{}}
	for _, r := range roles {
		u.Roles[r] = true
	}
	return u
}

// completeData returns a payload that passes every stage for the given
// actor when validated as a draft.
func completeData(actor *models.User) campaignval.Data {
	budget := 5000.0
	return campaignval.Data{
		Title:       "Spring newsletter push",
		Description: "Weekly newsletter sends through the end of the quarter.",
		AssignedTo:  actor.ID.Hex(),
		DueDate:     testNow.AddDate(0, 0, 30).Format(time.RFC3339),
		Budget:      &budget,
		Tags:        []string{"newsletter"},
		CreatedAt:   testNow,
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func containsSubstring(list []string, want string) bool {
	for _, s := range list {
		if strings.Contains(s, want) {
			return true
		}
	}
	return false
}

// --- required fields ---

func TestRun_ValidDraftPasses(t *testing.T) {
	actor := editor()
	res := campaignval.Run(campaignval.TypeDraft, completeData(actor), actor, "", testNow)

	if !res.IsValid() {
		t.Fatalf("Run: got errors %v, want none", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Run: got warnings %v, want none", res.Warnings)
	}
}

func TestRun_MissingTitleIsInvalid(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.Title = ""

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if res.IsValid() {
		t.Fatal("Run: got valid result, want invalid")
	}
	if !contains(res.Errors, "title is required") {
		t.Errorf("Run: errors %v missing %q", res.Errors, "title is required")
	}
	if len(res.Errors) != 1 {
		t.Errorf("Run: got %d errors, want 1", len(res.Errors))
	}
}

func TestRun_CollectsAllMissingFields(t *testing.T) {
	actor := editor()
	res := campaignval.Run(campaignval.TypeDraft, campaignval.Data{}, actor, "", testNow)

	for _, want := range []string{
		"title is required",
		"description is required",
		"assignee is required",
		"due date is required",
	} {
		if !contains(res.Errors, want) {
			t.Errorf("Run: errors %v missing %q", res.Errors, want)
		}
	}
	if len(res.Errors) != 4 {
		t.Errorf("Run: got %d errors, want 4", len(res.Errors))
	}
}

func TestRun_PastDueDateIsInvalid(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.DueDate = testNow.Add(-time.Hour).Format(time.RFC3339)

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !contains(res.Errors, "due date must be in the future") {
		t.Errorf("Run: errors %v missing %q", res.Errors, "due date must be in the future")
	}
	if !contains(res.Errors, "campaign timeline must be at least one day") {
		t.Errorf("Run: errors %v missing timeline error", res.Errors)
	}
}

func TestRun_UnparseableDueDate(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.DueDate = "sometime next quarter"

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !contains(res.Errors, "due date is invalid") {
		t.Errorf("Run: errors %v missing %q", res.Errors, "due date is invalid")
	}
}

func TestRun_AcceptsDateOnlyDueDate(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.DueDate = testNow.AddDate(0, 1, 0).Format("2006-01-02")

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !res.IsValid() {
		t.Errorf("Run: got errors %v, want none", res.Errors)
	}
}

// --- content policy ---

func TestRun_OverlongTitleIsError(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.Title = strings.Repeat("x", 101)

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !contains(res.Errors, "title must be 100 characters or fewer") {
		t.Errorf("Run: errors %v missing title length error", res.Errors)
	}
}

func TestRun_LongDescriptionWarnsOnly(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.Description = strings.Repeat("y", 1001)

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !res.IsValid() {
		t.Fatalf("Run: got errors %v, want none", res.Errors)
	}
	if !contains(res.Warnings, "description exceeds 1000 characters") {
		t.Errorf("Run: warnings %v missing description warning", res.Warnings)
	}
}

func TestRun_DenylistedTermsWarn(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.Title = "Guaranteed results"
	data.Description = "Act now, this LIMITED TIME offer will not last."

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !res.IsValid() {
		t.Fatalf("Run: got errors %v, want none", res.Errors)
	}
	for _, term := range []string{"guaranteed", "act now", "limited time"} {
		want := `content contains flagged term "` + term + `"`
		if !contains(res.Warnings, want) {
			t.Errorf("Run: warnings %v missing %q", res.Warnings, want)
		}
	}
	if len(res.Warnings) != 3 {
		t.Errorf("Run: got %d warnings, want 3", len(res.Warnings))
	}
}

// --- business rules ---

func TestRun_NegativeBudgetIsError(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	budget := -10.0
	data.Budget = &budget

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !contains(res.Errors, "budget cannot be negative") {
		t.Errorf("Run: errors %v missing budget error", res.Errors)
	}
}

func TestRun_OversizedBudgetWarns(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	budget := 1_500_000.0
	data.Budget = &budget

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !res.IsValid() {
		t.Fatalf("Run: got errors %v, want none", res.Errors)
	}
	if !contains(res.Warnings, "budget exceeds 1,000,000") {
		t.Errorf("Run: warnings %v missing budget warning", res.Warnings)
	}
}

func TestRun_MissingBudgetIsAllowed(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.Budget = nil

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !res.IsValid() {
		t.Errorf("Run: got errors %v, want none", res.Errors)
	}
}

func TestRun_LongTimelineWarns(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.DueDate = testNow.AddDate(0, 0, 400).Format(time.RFC3339)

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !res.IsValid() {
		t.Fatalf("Run: got errors %v, want none", res.Errors)
	}
	if !contains(res.Warnings, "campaign timeline exceeds 365 days") {
		t.Errorf("Run: warnings %v missing timeline warning", res.Warnings)
	}
}

func TestRun_TimelineMeasuredFromCreation(t *testing.T) {
	// A campaign created a year ago with a due date next month has a
	// long timeline even though the due date itself is near.
	actor := editor()
	data := completeData(actor)
	data.CreatedAt = testNow.AddDate(-1, -1, 0)
	data.DueDate = testNow.AddDate(0, 1, 0).Format(time.RFC3339)

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !contains(res.Warnings, "campaign timeline exceeds 365 days") {
		t.Errorf("Run: warnings %v missing timeline warning", res.Warnings)
	}
}

// --- actor permission ---

func TestRun_ViewerCannotModify(t *testing.T) {
	actor := withRoles(models.RoleViewer)
	data := completeData(actor)

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !contains(res.Errors, "editor or admin role required to modify campaigns") {
		t.Errorf("Run: errors %v missing role error", res.Errors)
	}
}

func TestRun_EditorAssigningOtherNeedsElevation(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.AssignedTo = primitive.NewObjectID().Hex()

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	want := "assigning to another user requires admin or reviewer role"
	if !contains(res.Errors, want) {
		t.Errorf("Run: errors %v missing %q", res.Errors, want)
	}
}

func TestRun_AdminMayAssignOther(t *testing.T) {
	actor := withRoles(models.RoleAdmin)
	data := completeData(actor)
	data.AssignedTo = primitive.NewObjectID().Hex()

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	if !res.IsValid() {
		t.Errorf("Run: got errors %v, want none", res.Errors)
	}
}

func TestRun_SelfAssignmentNeedsNoElevation(t *testing.T) {
	actor := editor()
	res := campaignval.Run(campaignval.TypeDraft, completeData(actor), actor, "", testNow)

	if contains(res.Errors, "assigning to another user requires admin or reviewer role") {
		t.Errorf("Run: errors %v include elevation error for self-assignment", res.Errors)
	}
}

// --- publish readiness ---

func TestRun_PublishRequiresApprovedStatus(t *testing.T) {
	actor := editor()
	data := completeData(actor)

	res := campaignval.Run(campaignval.TypePublish, data, actor, models.CampaignDraft, testNow)

	if res.IsValid() {
		t.Fatal("Run: got valid result, want publish-readiness error")
	}
	want := `campaign must be approved before publishing (current status "draft")`
	if !contains(res.Errors, want) {
		t.Errorf("Run: errors %v missing %q", res.Errors, want)
	}
}

func TestRun_PublishRequiresAssignee(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.AssignedTo = ""

	res := campaignval.Run(campaignval.TypePublish, data, actor, models.CampaignApproved, testNow)

	if !contains(res.Errors, "assignee is required") {
		t.Errorf("Run: errors %v missing required-field error", res.Errors)
	}
	if !contains(res.Errors, "assignee must be set before publishing") {
		t.Errorf("Run: errors %v missing publish assignee error", res.Errors)
	}
}

func TestRun_PublishApprovedCampaignIsValid(t *testing.T) {
	actor := editor()
	data := completeData(actor)

	res := campaignval.Run(campaignval.TypePublish, data, actor, models.CampaignApproved, testNow)

	if !res.IsValid() {
		t.Errorf("Run: got errors %v, want none", res.Errors)
	}
}

func TestRun_DraftSkipsPublishChecks(t *testing.T) {
	actor := editor()
	data := completeData(actor)

	res := campaignval.Run(campaignval.TypeDraft, data, actor, models.CampaignDraft, testNow)

	if containsSubstring(res.Errors, "before publishing") {
		t.Errorf("Run: errors %v include publish checks on a draft run", res.Errors)
	}
}

// --- pipeline behavior ---

func TestRun_NeverShortCircuits(t *testing.T) {
	actor := withRoles(models.RoleViewer)
	budget := -5.0
	data := campaignval.Data{
		Title:       "Guaranteed win",
		Description: "", // missing
		AssignedTo:  actor.ID.Hex(),
		DueDate:     testNow.AddDate(0, 0, 7).Format(time.RFC3339),
		Budget:      &budget,
		CreatedAt:   testNow,
	}

	res := campaignval.Run(campaignval.TypeDraft, data, actor, "", testNow)

	for _, want := range []string{
		"description is required",
		"budget cannot be negative",
		"editor or admin role required to modify campaigns",
	} {
		if !contains(res.Errors, want) {
			t.Errorf("Run: errors %v missing %q", res.Errors, want)
		}
	}
	if !contains(res.Warnings, `content contains flagged term "guaranteed"`) {
		t.Errorf("Run: warnings %v missing denylist warning", res.Warnings)
	}
}

// --- compliance report ---

func TestBuildReport_Suggestions(t *testing.T) {
	actor := editor()
	data := completeData(actor)
	data.Budget = nil
	data.Tags = nil
	data.AssignedTo = ""

	rep := campaignval.BuildReport(data, actor, testNow)

	for _, want := range []string{"add a budget", "add tags", "assign an owner"} {
		if !contains(rep.Suggestions, want) {
			t.Errorf("BuildReport: suggestions %v missing %q", rep.Suggestions, want)
		}
	}
}

func TestBuildReport_NoSuggestionsWhenComplete(t *testing.T) {
	actor := editor()
	rep := campaignval.BuildReport(completeData(actor), actor, testNow)

	if len(rep.Suggestions) != 0 {
		t.Errorf("BuildReport: got suggestions %v, want none", rep.Suggestions)
	}
}

func TestBuildReport_CategorizesFindings(t *testing.T) {
	actor := withRoles(models.RoleViewer)
	budget := -1.0
	data := completeData(actor)
	data.Title = "Risk-free growth"
	data.Budget = &budget
	data.AssignedTo = actor.ID.Hex()

	rep := campaignval.BuildReport(data, actor, testNow)

	if !contains(rep.Content, `content contains flagged term "risk-free"`) {
		t.Errorf("BuildReport: content %v missing denylist finding", rep.Content)
	}
	if !contains(rep.Business, "budget cannot be negative") {
		t.Errorf("BuildReport: business %v missing budget finding", rep.Business)
	}
	if !contains(rep.Permission, "editor or admin role required to modify campaigns") {
		t.Errorf("BuildReport: permission %v missing role finding", rep.Permission)
	}
}
