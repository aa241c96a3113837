package auditlog_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/planhub/internal/app/store/governance"
	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/planhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// collectAudits reads back every audit entry in insertion order.
func collectAudits(ctx context.Context, t *testing.T, store *governancestore.Store) []models.GovernanceRecord {
	t.Helper()
	var recs []models.GovernanceRecord
	if err := store.EachAudit(ctx, func(rec models.GovernanceRecord) error {
		recs = append(recs, rec)
		return nil
	}); err != nil {
		t.Fatalf("EachAudit failed: %v", err)
	}
	return recs
}

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	if err := logger.Log(ctx, models.ActionLoginSucceeded, "", nil, nil); err != nil {
		t.Errorf("nil logger Log returned error: %v", err)
	}
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "a@example.com", "password")
	logger.Logout(ctx, req, primitive.NewObjectID().Hex())
	if err := logger.ExportBlocked(ctx, req, primitive.NewObjectID(), "c1", "2026-W10", "not approved"); err != nil {
		t.Errorf("nil logger ExportBlocked returned error: %v", err)
	}
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zapLog, auditlog.Config{
		Governance: "off",
		Auth:       "off",
		Admin:      "off",
	})

	userID := primitive.NewObjectID()
	if err := logger.Log(ctx, models.ActionLoginSucceeded, "", &userID, nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if recs := collectAudits(ctx, t, store); len(recs) != 0 {
		t.Errorf("expected no records when config is 'off', got %d", len(recs))
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "db",
	})

	if err := logger.Log(ctx, models.ActionLoginSucceeded, "", &userID, nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Action != models.ActionLoginSucceeded {
		t.Errorf("Action: got %q, want %q", recs[0].Action, models.ActionLoginSucceeded)
	}
	if recs[0].UserID == nil || *recs[0].UserID != userID {
		t.Error("expected UserID to be set")
	}
}

func TestLogger_Log_ConfigLogOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "log",
	})

	userID := primitive.NewObjectID()
	if err := logger.Log(ctx, models.ActionLoginSucceeded, "", &userID, nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if recs := collectAudits(ctx, t, store); len(recs) != 0 {
		t.Errorf("expected no records when config is 'log', got %d", len(recs))
	}
}

func TestLogger_Log_ConfigAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "all",
	})

	if err := logger.Log(ctx, models.ActionLoginSucceeded, "", &userID, nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Errorf("expected 1 record, got %d", len(recs))
	}
}

func TestLogger_GovernanceEntriesVerify(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	campaignID := primitive.NewObjectID().Hex()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Governance: "db",
	})

	req := httptest.NewRequest("POST", "/campaigns/validate", nil)
	if err := logger.CampaignValidated(ctx, req, userID, campaignID, 0, 2); err != nil {
		t.Fatalf("CampaignValidated failed: %v", err)
	}

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Action != models.ActionCampaignValidated {
		t.Errorf("Action: got %q, want %q", rec.Action, models.ActionCampaignValidated)
	}
	if rec.ResourceID != campaignID {
		t.Errorf("ResourceID: got %q, want %q", rec.ResourceID, campaignID)
	}
	if rec.Metadata["errors"] != "0" || rec.Metadata["warnings"] != "2" {
		t.Errorf("counts: got errors=%q warnings=%q", rec.Metadata["errors"], rec.Metadata["warnings"])
	}
	if !governancestore.VerifyAudit(&rec) {
		t.Error("expected stored entry to verify against its hash")
	}
}

func TestLogger_LoginSuccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "db",
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "TestBrowser/1.0")

	logger.LoginSuccess(ctx, req, userID, "ada@example.com", "password")

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Action != models.ActionLoginSucceeded {
		t.Errorf("Action: got %q, want %q", rec.Action, models.ActionLoginSucceeded)
	}
	if rec.Metadata["email"] != "ada@example.com" {
		t.Errorf("email: got %q, want %q", rec.Metadata["email"], "ada@example.com")
	}
	if rec.Metadata["auth_method"] != "password" {
		t.Errorf("auth_method: got %q, want %q", rec.Metadata["auth_method"], "password")
	}
	if rec.Metadata["user_agent"] != "TestBrowser/1.0" {
		t.Errorf("user_agent: got %q, want %q", rec.Metadata["user_agent"], "TestBrowser/1.0")
	}
}

func TestLogger_LoginFailedUserNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "db",
	})

	req := httptest.NewRequest("GET", "/", nil)
	logger.LoginFailedUserNotFound(ctx, req, "unknown@example.com")

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Action != models.ActionLoginFailed {
		t.Errorf("Action: got %q, want %q", rec.Action, models.ActionLoginFailed)
	}
	if rec.UserID != nil {
		t.Error("expected no UserID for an unknown email")
	}
	if rec.Metadata["failure_reason"] != "user not found" {
		t.Errorf("failure_reason: got %q, want %q", rec.Metadata["failure_reason"], "user not found")
	}
}

func TestLogger_Logout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "db",
	})

	req := httptest.NewRequest("GET", "/", nil)
	logger.Logout(ctx, req, userID.Hex())

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Action != models.ActionLoggedOut {
		t.Errorf("Action: got %q, want %q", recs[0].Action, models.ActionLoggedOut)
	}
	if recs[0].UserID == nil || *recs[0].UserID != userID {
		t.Error("expected UserID parsed from hex")
	}
}

func TestLogger_Logout_InvalidID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "db",
	})

	req := httptest.NewRequest("GET", "/", nil)
	// Should not panic with an invalid hex ID
	logger.Logout(ctx, req, "invalid-hex")

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].UserID != nil {
		t.Error("expected no UserID for an invalid hex ID")
	}
}

func TestLogger_ReviewDecided(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	reviewerID := primitive.NewObjectID()
	campaignID := primitive.NewObjectID().Hex()
	reviewID := primitive.NewObjectID().Hex()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Governance: "db",
	})

	req := httptest.NewRequest("POST", "/governance/reviews", nil)
	if err := logger.ReviewDecided(ctx, req, reviewerID, campaignID, reviewID, models.ReviewApproved); err != nil {
		t.Fatalf("ReviewDecided failed: %v", err)
	}

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Metadata["decision"] != models.ReviewApproved {
		t.Errorf("decision: got %q, want %q", rec.Metadata["decision"], models.ReviewApproved)
	}
	if rec.Metadata["review_id"] != reviewID {
		t.Errorf("review_id: got %q, want %q", rec.Metadata["review_id"], reviewID)
	}
}

func TestLogger_ExportBlocked(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	campaignID := primitive.NewObjectID().Hex()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Governance: "db",
	})

	req := httptest.NewRequest("POST", "/campaigns/export", nil)
	if err := logger.ExportBlocked(ctx, req, userID, campaignID, "2026-W14", "campaign not approved"); err != nil {
		t.Fatalf("ExportBlocked failed: %v", err)
	}

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Action != models.ActionExportBlocked {
		t.Errorf("Action: got %q, want %q", rec.Action, models.ActionExportBlocked)
	}
	if rec.Metadata["reason"] != "campaign not approved" {
		t.Errorf("reason: got %q, want %q", rec.Metadata["reason"], "campaign not approved")
	}
	if rec.Metadata["period"] != "2026-W14" {
		t.Errorf("period: got %q, want %q", rec.Metadata["period"], "2026-W14")
	}
}

func TestLogger_UserCreated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actorID := primitive.NewObjectID()
	targetID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Admin: "db",
	})

	req := httptest.NewRequest("POST", "/users", nil)
	logger.UserCreated(ctx, req, actorID, targetID, "editor")

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Action != models.ActionUserCreated {
		t.Errorf("Action: got %q, want %q", rec.Action, models.ActionUserCreated)
	}
	if rec.ResourceID != targetID.Hex() {
		t.Errorf("ResourceID: got %q, want %q", rec.ResourceID, targetID.Hex())
	}
	if rec.Metadata["actor_id"] != actorID.Hex() {
		t.Errorf("actor_id: got %q, want %q", rec.Metadata["actor_id"], actorID.Hex())
	}
}

func TestLogger_AuthCategoryFilteredByConfig(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth:  "off",
		Admin: "db",
	})

	req := httptest.NewRequest("GET", "/", nil)

	// Auth event should be skipped
	logger.LoginSuccess(ctx, req, userID, "ada@example.com", "password")

	// Admin event should be logged
	targetID := primitive.NewObjectID()
	logger.UserCreated(ctx, req, userID, targetID, "viewer")

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Action != models.ActionUserCreated {
		t.Errorf("Action: got %q, want %q", recs[0].Action, models.ActionUserCreated)
	}
}

func TestGetClientIP_XForwardedFor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "db",
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.195, 70.41.3.18")
	req.Header.Set("X-Real-IP", "192.168.1.1")
	req.RemoteAddr = "127.0.0.1:12345"

	logger.LoginSuccess(ctx, req, userID, "ada@example.com", "password")

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	// First X-Forwarded-For entry takes precedence
	if got := recs[0].Metadata["ip"]; got != "203.0.113.195" {
		t.Errorf("ip: got %q, want %q", got, "203.0.113.195")
	}
}

func TestGetClientIP_XRealIP(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "db",
	})

	req := httptest.NewRequest("GET", "/", nil)
	// No X-Forwarded-For
	req.Header.Set("X-Real-IP", "192.168.1.100")
	req.RemoteAddr = "127.0.0.1:12345"

	logger.LoginSuccess(ctx, req, userID, "ada@example.com", "password")

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	if got := recs[0].Metadata["ip"]; got != "192.168.1.100" {
		t.Errorf("ip: got %q, want %q", got, "192.168.1.100")
	}
}

func TestGetClientIP_RemoteAddr(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{
		Auth: "db",
	})

	req := httptest.NewRequest("GET", "/", nil)
	// No proxy headers
	req.RemoteAddr = "10.0.0.5:12345"

	logger.LoginSuccess(ctx, req, userID, "ada@example.com", "password")

	recs := collectAudits(ctx, t, store)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	// Falls back to RemoteAddr with the port stripped
	if got := recs[0].Metadata["ip"]; got != "10.0.0.5" {
		t.Errorf("ip: got %q, want %q", got, "10.0.0.5")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := auditlog.DefaultConfig()
	if config.Governance != auditlog.DestAll {
		t.Errorf("Governance: got %q, want %q", config.Governance, auditlog.DestAll)
	}
	if config.Auth != auditlog.DestLog {
		t.Errorf("Auth: got %q, want %q", config.Auth, auditlog.DestLog)
	}
	if config.Admin != auditlog.DestDB {
		t.Errorf("Admin: got %q, want %q", config.Admin, auditlog.DestDB)
	}
}

func TestNew_EmptyConfigUsesDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := governancestore.New(db)
	zapLog := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zapLog, auditlog.Config{})

	req := httptest.NewRequest("GET", "/", nil)

	// Default auth destination is log-only, so no DB record
	logger.LoginSuccess(ctx, req, userID, "ada@example.com", "password")
	if recs := collectAudits(ctx, t, store); len(recs) != 0 {
		t.Errorf("expected auth events to stay out of the store, got %d records", len(recs))
	}

	// Default governance destination persists
	if err := logger.CampaignPublished(ctx, req, userID, primitive.NewObjectID().Hex()); err != nil {
		t.Fatalf("CampaignPublished failed: %v", err)
	}
	if recs := collectAudits(ctx, t, store); len(recs) != 1 {
		t.Errorf("expected governance events in the store, got %d records", len(recs))
	}
}
