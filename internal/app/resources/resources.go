// internal/app/resources/resources.go

// Package resources embeds the shared template files every feature's
// pages render inside: the site layout with navigation and the flash
// block. Feature packages register their own sets next to this one.
package resources

import (
	"embed"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

var registerOnce sync.Once

// LoadSharedTemplates registers the shared layout set exactly once.
// Called from the Startup hook before the template engine boots.
func LoadSharedTemplates() {
	registerOnce.Do(func() {
		templates.Register(templates.Set{
			Name:     "shared",
			FS:       FS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
}
