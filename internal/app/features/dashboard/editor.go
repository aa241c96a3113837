// internal/app/features/dashboard/editor.go
package dashboard

import (
	"context"
	"net/http"

	campaignstore "github.com/dalemusser/planhub/internal/app/store/campaigns"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/gates"
	"github.com/dalemusser/planhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type editorData struct {
	viewdata.BaseVM

	Counts      statusSummary
	MyCampaigns int64
}

func (h *Handler) ServeEditor(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireEditor(w, r, "The editor dashboard is restricted to editors.", "/dashboard"); !res.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	data := editorData{
		BaseVM: viewdata.NewBaseVM(r, h.DB, "Dashboard", "/"),
	}

	counts, err := loadStatusSummary(ctx, h.DB)
	if err != nil {
		h.Log.Error("dashboard status counts failed", zap.Error(err))
	}
	data.Counts = counts

	if u, ok := auth.CurrentUser(r); ok {
		if uid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
			mine, err := campaignstore.New(h.DB).CountAssignedTo(ctx, uid)
			if err != nil {
				h.Log.Error("dashboard assigned count failed", zap.Error(err))
			}
			data.MyCampaigns = mine
		}
	}

	templates.Render(w, r, "dashboard_editor", data)
}
