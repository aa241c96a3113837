// internal/app/features/campaigns/templates.go
package campaigns

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "campaigns",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
