// internal/app/store/campaigns/campaignstore.go
package campaignstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrStatusConflict is returned when a status transition's expected
	// current status no longer matches the stored document. Concurrent
	// submissions and decisions surface this instead of double-firing.
	ErrStatusConflict = errors.New("campaign status changed since it was read")

	errBadStatus = errors.New(`status must be "draft"|"in_review"|"approved"|"active"|"completed"|"archived"`)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("campaigns")}
}

func validStatus(s string) bool {
	switch s {
	case models.CampaignDraft, models.CampaignInReview, models.CampaignApproved,
		models.CampaignActive, models.CampaignCompleted, models.CampaignArchived:
		return true
	}
	return false
}

// GetByID loads a campaign. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	var c models.Campaign
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new campaign. Status defaults to draft.
func (s *Store) Create(ctx context.Context, c models.Campaign) (models.Campaign, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.TitleCI = text.Fold(c.Title)
	if c.Status == "" {
		c.Status = models.CampaignDraft
	}
	if !validStatus(c.Status) {
		return models.Campaign{}, errBadStatus
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Campaign{}, err
	}
	return c, nil
}

// Update holds the planner-editable fields of a campaign.
type Update struct {
	Title       string
	Description string
	AssignedTo  *primitive.ObjectID
	TeamID      string
	Budget      *float64
	DueDate     time.Time
	Tags        []string
	Channel     string
}

// UpdateFields replaces the planning fields of a campaign. Status is not
// touched here; transitions go through TransitionStatus.
func (s *Store) UpdateFields(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{
		"title":       upd.Title,
		"title_ci":    text.Fold(upd.Title),
		"description": upd.Description,
		"assigned_to": upd.AssignedTo,
		"team_id":     upd.TeamID,
		"budget":      upd.Budget,
		"due_date":    upd.DueDate,
		"tags":        upd.Tags,
		"channel":     upd.Channel,
		"updated_at":  time.Now().UTC(),
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// TransitionStatus moves a campaign from one status to another with a
// conditional update. When the stored status no longer equals from, no
// document matches and ErrStatusConflict is returned, so two concurrent
// transitions cannot both succeed.
func (s *Store) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to string) error {
	if !validStatus(to) {
		return errBadStatus
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing campaign from a stale status.
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

// UpdateActivities replaces the campaign's per-period activity plan.
func (s *Store) UpdateActivities(ctx context.Context, id primitive.ObjectID, activities []models.Activity) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"activities": activities,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a campaign by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByStatus returns how many campaigns are in the given status.
func (s *Store) CountByStatus(ctx context.Context, stat string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": stat})
}

// CountAssignedTo returns how many campaigns are assigned to the given user.
func (s *Store) CountAssignedTo(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"assigned_to": userID})
}
