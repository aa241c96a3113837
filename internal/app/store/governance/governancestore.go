// internal/app/store/governance/governancestore.go
package governancestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/audithash"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrAlreadyDecided is returned when deciding a review whose status is
	// no longer pending. Two reviewers racing on the same item get exactly
	// one success.
	ErrAlreadyDecided = errors.New("review has already been decided")

	errBadDecision   = errors.New(`decision must be "approved" or "rejected"`)
	errBadReviewType = errors.New(`review type must be "standard" or "expedited"`)
	errBadPriority   = errors.New(`priority must be "low"|"normal"|"high"`)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("governance")}
}

/*─────────────────────────── audit entries ───────────────────────────*/

// AppendAudit writes one tamper-evident audit entry and waits for the
// acknowledgment. The caller's operation is not complete until this
// returns nil; on error the caller must fail its operation rather than
// proceed unaudited.
func (s *Store) AppendAudit(ctx context.Context, action, resourceID string, userID *primitive.ObjectID, metadata map[string]string) (models.GovernanceRecord, error) {
	userHex := ""
	if userID != nil {
		userHex = userID.Hex()
	}
	entry, hash := audithash.New(action, resourceID, userHex, metadata)

	rec := models.GovernanceRecord{
		ID:         primitive.NewObjectID(),
		Action:     entry.Action,
		ResourceID: entry.ResourceID,
		UserID:     userID,
		Timestamp:  entry.Timestamp,
		Metadata:   entry.Metadata,
		Hash:       hash,
		CreatedAt:  entry.Timestamp,
	}

	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.GovernanceRecord{}, err
	}
	return rec, nil
}

// AuditEntry reconstructs the hash input from a stored record so its
// digest can be recomputed.
func AuditEntry(rec *models.GovernanceRecord) audithash.Entry {
	userHex := ""
	if rec.UserID != nil {
		userHex = rec.UserID.Hex()
	}
	return audithash.Entry{
		Action:     rec.Action,
		ResourceID: rec.ResourceID,
		UserID:     userHex,
		Timestamp:  rec.Timestamp,
		Metadata:   rec.Metadata,
	}
}

// VerifyAudit reports whether the stored record's hash still matches its
// content.
func VerifyAudit(rec *models.GovernanceRecord) bool {
	return audithash.Verify(AuditEntry(rec), rec.Hash)
}

// EachAudit walks every audit entry in insertion order and calls fn for
// each. The background integrity sweep uses this; fn returning an error
// stops the walk.
func (s *Store) EachAudit(ctx context.Context, fn func(models.GovernanceRecord) error) error {
	cur, err := s.c.Find(ctx,
		bson.M{"action": bson.M{"$exists": true, "$ne": ""}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var rec models.GovernanceRecord
		if err := cur.Decode(&rec); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return cur.Err()
}

// AuditFilter narrows a ListAudit page. Zero values mean no constraint.
type AuditFilter struct {
	Action     string
	UserID     *primitive.ObjectID
	ResourceID string
}

// ListAudit returns one page of audit entries, newest first. A non-zero
// beforeID restricts the page to entries older than that one, which is
// how callers walk backwards through the log.
func (s *Store) ListAudit(ctx context.Context, f AuditFilter, beforeID primitive.ObjectID, limit int64) ([]models.GovernanceRecord, error) {
	filter := bson.M{"action": bson.M{"$exists": true, "$ne": ""}}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	if f.ResourceID != "" {
		filter["resource_id"] = f.ResourceID
	}
	if !beforeID.IsZero() {
		filter["_id"] = bson.M{"$lt": beforeID}
	}

	cur, err := s.c.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "_id", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.GovernanceRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

/*─────────────────────────── review records ───────────────────────────*/

// CreateReview opens a pending review for a campaign.
func (s *Store) CreateReview(ctx context.Context, campaignID, submittedBy primitive.ObjectID, reviewType, priority, notes string) (models.GovernanceRecord, error) {
	if !models.IsValidReviewType(reviewType) {
		return models.GovernanceRecord{}, errBadReviewType
	}
	if !models.IsValidReviewPriority(priority) {
		return models.GovernanceRecord{}, errBadPriority
	}

	rec := models.GovernanceRecord{
		ID:          primitive.NewObjectID(),
		Type:        models.GovernanceReview,
		Status:      models.ReviewPending,
		CampaignID:  &campaignID,
		SubmittedBy: &submittedBy,
		ReviewType:  reviewType,
		Priority:    priority,
		Notes:       notes,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.GovernanceRecord{}, err
	}
	return rec, nil
}

// GetReviewByID loads a review record. Returns mongo.ErrNoDocuments if
// not found or if the document is not a review.
func (s *Store) GetReviewByID(ctx context.Context, id primitive.ObjectID) (*models.GovernanceRecord, error) {
	var rec models.GovernanceRecord
	err := s.c.FindOne(ctx, bson.M{"_id": id, "type": models.GovernanceReview}).Decode(&rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PendingReviewForCampaign returns the campaign's open review, or
// mongo.ErrNoDocuments when none is pending.
func (s *Store) PendingReviewForCampaign(ctx context.Context, campaignID primitive.ObjectID) (*models.GovernanceRecord, error) {
	var rec models.GovernanceRecord
	err := s.c.FindOne(ctx, bson.M{
		"type":        models.GovernanceReview,
		"status":      models.ReviewPending,
		"campaign_id": campaignID,
	}).Decode(&rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DecideReview records a reviewer's decision with a conditional update.
// When the review is no longer pending, no document matches and
// ErrAlreadyDecided is returned.
func (s *Store) DecideReview(ctx context.Context, id, decidedBy primitive.ObjectID, decision, notes string) error {
	if decision != models.ReviewApproved && decision != models.ReviewRejected {
		return errBadDecision
	}

	now := time.Now().UTC()
	set := bson.M{
		"status":     decision,
		"decided_by": decidedBy,
		"decided_at": now,
	}
	if notes != "" {
		set["notes"] = notes
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "type": models.GovernanceReview, "status": models.ReviewPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing review from one already decided.
		if err := s.c.FindOne(ctx, bson.M{"_id": id, "type": models.GovernanceReview}).Err(); err != nil {
			return err
		}
		return ErrAlreadyDecided
	}
	return nil
}

// ListPendingReviews returns up to limit open reviews, oldest first, so
// the queue surfaces the longest-waiting submissions.
func (s *Store) ListPendingReviews(ctx context.Context, limit int64) ([]models.GovernanceRecord, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"type": models.GovernanceReview, "status": models.ReviewPending},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.GovernanceRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// CountPendingReviews returns how many reviews are waiting for a decision.
func (s *Store) CountPendingReviews(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"type":   models.GovernanceReview,
		"status": models.ReviewPending,
	})
}
