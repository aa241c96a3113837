// Package formutil provides helpers for form re-rendering with validation errors.
//
// When a form submission fails validation, the form should be re-rendered with:
// - The user's previously entered values (echoed back)
// - An error message explaining what went wrong
// - All the context data needed for the form (dropdowns, etc.)
//
// This package provides a Base struct that can be embedded in form data structs
// to handle the common fields, and helper functions to populate them.
//
// Example usage:
//
//	type newCampaignData struct {
//		formutil.Base
//		Title string
//		Teams []teamutil.TeamOption
//	}
//
//	// In your handler:
//	data := newCampaignData{Title: title}
//	formutil.SetBase(&data.Base, r, h.DB, "New Campaign", "/campaigns")
//	data.SetError("Title is required.")
//	templates.Render(w, r, "campaign_new", data)
package formutil

import (
	"html/template"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/mongo"
)

// Base contains common fields for form pages that can be embedded in form
// data structs. It carries the full layout view model plus an error slot
// for re-rendering after failed validation.
type Base struct {
	viewdata.BaseVM
	Error template.HTML
}

// SetBase populates the embedded layout fields from the request context.
//
// Parameters:
//   - b: pointer to the Base struct to populate
//   - r: the HTTP request
//   - db: database for the layout's pending review badge (nil to skip)
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func SetBase(b *Base, r *http.Request, db *mongo.Database, title, backDefault string) {
	b.BaseVM = viewdata.NewBaseVM(r, db, title, backDefault)
}

// SetError sets the error message on a Base struct.
// This is a convenience method for setting Error as template.HTML.
func (b *Base) SetError(msg string) {
	b.Error = template.HTML(msg)
}
