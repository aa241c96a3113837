// internal/app/system/limits/limits.go
package limits

// Request body size limits for form submissions. Handlers install these
// with http.MaxBytesReader before ParseForm so oversized requests fail
// instead of exhausting memory.
const (
	// MaxCampaignFormSize bounds campaign create/edit submissions. The
	// description field dominates; 1 MB is far above the validation
	// engine's warning threshold.
	MaxCampaignFormSize = 1 << 20 // 1 MB

	// MaxUserFormSize bounds user administration form submissions.
	MaxUserFormSize = 256 << 10 // 256 KB
)
