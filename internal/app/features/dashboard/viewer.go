// internal/app/features/dashboard/viewer.go
package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

type viewerData struct {
	viewdata.BaseVM

	Counts statusSummary
}

func (h *Handler) ServeViewer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	data := viewerData{
		BaseVM: viewdata.NewBaseVM(r, h.DB, "Dashboard", "/"),
	}

	counts, err := loadStatusSummary(ctx, h.DB)
	if err != nil {
		h.Log.Error("dashboard status counts failed", zap.Error(err))
	}
	data.Counts = counts

	templates.Render(w, r, "dashboard_viewer", data)
}
