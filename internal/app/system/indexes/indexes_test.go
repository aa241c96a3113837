package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/planhub/internal/app/system/indexes"
	"github.com/dalemusser/planhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func listIndexNames(t *testing.T, ctx context.Context, coll *mongo.Collection) map[string]bool {
	t.Helper()

	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// EnsureAll should succeed on a clean database
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// First call
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}

	// Second call should also succeed (idempotent)
	err = indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesUserIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	indexNames := listIndexNames(t, ctx, db.Collection("users"))

	expectedIndexes := []string{
		"uniq_users_email",
		"idx_users_status_displaynameci__id",
		"idx_users_status_email__id",
		"idx_users_teams_status_displaynameci",
	}

	for _, name := range expectedIndexes {
		if !indexNames[name] {
			t.Errorf("expected index %q to exist on users collection", name)
		}
	}
}

func TestEnsureAll_CreatesCampaignIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	indexNames := listIndexNames(t, ctx, db.Collection("campaigns"))

	expectedIndexes := []string{
		"idx_campaigns_status_titleci__id",
		"idx_campaigns_titleci__id",
		"idx_campaigns_assigned_status",
		"idx_campaigns_team_status_titleci__id",
		"idx_campaigns_created",
	}

	for _, name := range expectedIndexes {
		if !indexNames[name] {
			t.Errorf("expected index %q to exist on campaigns collection", name)
		}
	}
}

func TestEnsureAll_CreatesGovernanceIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	indexNames := listIndexNames(t, ctx, db.Collection("governance"))

	expectedIndexes := []string{
		"idx_gov_action__id",
		"idx_gov_resource_created",
		"idx_gov_user_created",
		"idx_gov_type_status_created",
		"idx_gov_campaign_status",
	}

	for _, name := range expectedIndexes {
		if !indexNames[name] {
			t.Errorf("expected index %q to exist on governance collection", name)
		}
	}
}

func TestEnsureAll_CreatesTeamIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	indexNames := listIndexNames(t, ctx, db.Collection("teams"))

	if !indexNames["uniq_teams_key"] {
		t.Error("expected index uniq_teams_key to exist on teams collection")
	}
}

func TestEnsureAll_CreatesRoleConfigIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	roleNames := listIndexNames(t, ctx, db.Collection("roles"))
	if !roleNames["uniq_roles_name"] {
		t.Error("expected index uniq_roles_name to exist on roles collection")
	}

	tierNames := listIndexNames(t, ctx, db.Collection("tiers"))
	if !tierNames["uniq_tiers_name"] {
		t.Error("expected index uniq_tiers_name to exist on tiers collection")
	}
}

func TestEnsureAll_UniqueEmailEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Run EnsureAll to create indexes
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Insert a user with a known email
	_, err = db.Collection("users").InsertOne(ctx, bson.M{"email": "dup@example.com", "display_name": "First"})
	if err != nil {
		t.Fatalf("Insert user failed: %v", err)
	}

	// A second user with the same email must be rejected
	_, err = db.Collection("users").InsertOne(ctx, bson.M{"email": "dup@example.com", "display_name": "Second"})
	if err == nil {
		t.Error("expected duplicate key error for unique index on users.email")
	}
}

func TestEnsureAll_UniqueTeamKeyEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err = db.Collection("teams").InsertOne(ctx, bson.M{"key": "brand", "name": "Brand"})
	if err != nil {
		t.Fatalf("Insert team failed: %v", err)
	}

	_, err = db.Collection("teams").InsertOne(ctx, bson.M{"key": "brand", "name": "Brand Marketing"})
	if err == nil {
		t.Error("expected duplicate key error for unique index on teams.key")
	}
}
