package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/authutil"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user holding a single role flag.
func (f *Fixtures) CreateUser(ctx context.Context, first, last, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	display := first + " " + last
	user := models.User{
		ID:            primitive.NewObjectID(),
		Email:         email,
		FirstName:     first,
		LastName:      last,
		DisplayName:   display,
		DisplayNameCI: text.Fold(display),
		Roles:         map[string]bool{role: true},
		Status:        models.UserActive,
		AuthMethod:    "password",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateAdmin creates a test administrator.
func (f *Fixtures) CreateAdmin(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Ada", "Admin", email, models.RoleAdmin)
}

// CreateEditor creates a test editor.
func (f *Fixtures) CreateEditor(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Eve", "Editor", email, models.RoleEditor)
}

// CreateReviewer creates a test reviewer.
func (f *Fixtures) CreateReviewer(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Rae", "Reviewer", email, models.RoleReviewer)
}

// CreateViewer creates a test viewer.
func (f *Fixtures) CreateViewer(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Vic", "Viewer", email, models.RoleViewer)
}

// CreateUserWithPassword creates a test user holding a single role flag
// and a bcrypt credential for the given password.
func (f *Fixtures) CreateUserWithPassword(ctx context.Context, email, role, password string) models.User {
	f.t.Helper()

	hash, err := authutil.HashPassword(password)
	if err != nil {
		f.t.Fatalf("failed to hash test password: %v", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:            primitive.NewObjectID(),
		Email:         email,
		FirstName:     "Pat",
		LastName:      "Password",
		DisplayName:   "Pat Password",
		DisplayNameCI: text.Fold("Pat Password"),
		Roles:         map[string]bool{role: true},
		Status:        models.UserActive,
		AuthMethod:    models.AuthPassword,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateSuspendedUser creates a user whose status blocks sign-in.
func (f *Fixtures) CreateSuspendedUser(ctx context.Context, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:            primitive.NewObjectID(),
		Email:         email,
		FirstName:     "Sam",
		LastName:      "Suspended",
		DisplayName:   "Sam Suspended",
		DisplayNameCI: text.Fold("Sam Suspended"),
		Roles:         map[string]bool{models.RoleViewer: true},
		Status:        models.UserSuspended,
		AuthMethod:    "password",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create suspended test user: %v", err)
	}
	return user
}

// CreateTeam creates a test team with the given key and name.
func (f *Fixtures) CreateTeam(ctx context.Context, key, name string) models.Team {
	f.t.Helper()

	now := time.Now().UTC()
	team := models.Team{
		ID:        primitive.NewObjectID(),
		Key:       key,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("teams").InsertOne(ctx, team); err != nil {
		f.t.Fatalf("failed to create test team: %v", err)
	}
	return team
}

// CreateCampaign creates a test campaign in the given status, owned and
// assigned to creatorID, with planning fields that pass validation.
func (f *Fixtures) CreateCampaign(ctx context.Context, title, status string, creatorID primitive.ObjectID) models.Campaign {
	f.t.Helper()

	now := time.Now().UTC()
	budget := 5000.0
	campaign := models.Campaign{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		Description: "Test campaign description",
		Status:      status,
		AssignedTo:  &creatorID,
		Budget:      &budget,
		DueDate:     now.AddDate(0, 0, 30),
		Tags:        []string{"newsletter"},
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("campaigns").InsertOne(ctx, campaign); err != nil {
		f.t.Fatalf("failed to create test campaign: %v", err)
	}
	return campaign
}

// CreatePendingReview creates a pending review record for a campaign.
func (f *Fixtures) CreatePendingReview(ctx context.Context, campaignID, submittedBy primitive.ObjectID) models.GovernanceRecord {
	f.t.Helper()

	now := time.Now().UTC()
	review := models.GovernanceRecord{
		ID:          primitive.NewObjectID(),
		Type:        models.GovernanceReview,
		Status:      models.ReviewPending,
		CampaignID:  &campaignID,
		SubmittedBy: &submittedBy,
		ReviewType:  "standard",
		Priority:    "normal",
		CreatedAt:   now,
	}

	if _, err := f.db.Collection("governance").InsertOne(ctx, review); err != nil {
		f.t.Fatalf("failed to create test review: %v", err)
	}
	return review
}
