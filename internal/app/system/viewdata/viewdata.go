// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"context"
	"net/http"

	governancestore "github.com/dalemusser/planhub/internal/app/store/governance"
	"github.com/dalemusser/planhub/internal/app/system/authz"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/mongo"
)

// SiteName is shown in the layout header and page titles.
const SiteName = "PlanHub"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, db, "Page Title", "/default-back"),
//	    // page-specific fields...
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	Role       string
	UserName   string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// CSRF protection
	CSRFToken string // Token for form submission

	// Review queue badge, shown to admins and reviewers in the nav.
	PendingReviews int64
}

// CanReview reports whether the nav should show the review queue.
func (vm BaseVM) CanReview() bool {
	return vm.Role == models.RoleAdmin || vm.Role == models.RoleReviewer
}

// IsAdmin reports whether the signed-in user is an administrator.
func (vm BaseVM) IsAdmin() bool {
	return vm.Role == models.RoleAdmin
}

// NewBaseVM creates a fully populated BaseVM for a page.
// This is the preferred way to create a BaseVM for embedding in view models.
//
// Parameters:
//   - r: the HTTP request
//   - db: database for loading the pending review count (can be nil to skip)
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(r *http.Request, db *mongo.Database, title, backDefault string) BaseVM {
	role, name, _, signedIn := authz.UserCtx(r)

	vm := BaseVM{
		SiteName:    SiteName,
		IsLoggedIn:  signedIn,
		Role:        role,
		UserName:    name,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	// The badge is informational; a failed count just renders as zero.
	if db != nil && vm.CanReview() {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		if n, err := governancestore.New(db).CountPendingReviews(ctx); err == nil {
			vm.PendingReviews = n
		}
	}

	return vm
}

// LoadBase populates a BaseVM from the request context without page
// context fields. Pass db=nil to skip the pending review count.
//
// Deprecated: Use NewBaseVM instead, which also sets Title, BackURL, and CurrentPath.
func LoadBase(r *http.Request, db *mongo.Database) BaseVM {
	return NewBaseVM(r, db, "", "")
}
