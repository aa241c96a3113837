// internal/app/features/dashboard/common.go
package dashboard

import (
	"context"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/teamutil"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

const dashboardTimeout = 5 * time.Second

// statusSummary holds campaign counts broken out by status. Every
// dashboard view shows some slice of it.
type statusSummary struct {
	Draft     int64
	InReview  int64
	Approved  int64
	Active    int64
	Completed int64
	Archived  int64
}

// Total returns the number of campaigns across all statuses.
func (s statusSummary) Total() int64 {
	return s.Draft + s.InReview + s.Approved + s.Active + s.Completed + s.Archived
}

func loadStatusSummary(ctx context.Context, db *mongo.Database) (statusSummary, error) {
	counts, err := teamutil.StatusCounts(ctx, db)
	if err != nil {
		return statusSummary{}, err
	}
	return statusSummary{
		Draft:     counts[models.CampaignDraft],
		InReview:  counts[models.CampaignInReview],
		Approved:  counts[models.CampaignApproved],
		Active:    counts[models.CampaignActive],
		Completed: counts[models.CampaignCompleted],
		Archived:  counts[models.CampaignArchived],
	}, nil
}
