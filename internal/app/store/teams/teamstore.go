// internal/app/store/teams/teamstore.go
package teamstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrDuplicateKey is returned when creating a team whose key already exists.
	ErrDuplicateKey = errors.New("a team with this key already exists")
	errEmptyKey     = errors.New("team key is required")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("teams")}
}

// GetByKey loads a team by its stable key. Returns mongo.ErrNoDocuments
// if not found.
func (s *Store) GetByKey(ctx context.Context, key string) (*models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"key": normalize.TeamKey(key)}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new team. Keys are normalized before storage.
func (s *Store) Create(ctx context.Context, t models.Team) (models.Team, error) {
	t.Key = normalize.TeamKey(t.Key)
	if t.Key == "" {
		return models.Team{}, errEmptyKey
	}
	t.Name = normalize.Name(t.Name)
	if t.Name == "" {
		t.Name = t.Key
	}

	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Team{}, ErrDuplicateKey
		}
		return models.Team{}, err
	}
	return t, nil
}

// Rename changes a team's display name. The key is immutable; user
// documents reference teams by key.
func (s *Store) Rename(ctx context.Context, key, name string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"key": normalize.TeamKey(key)},
		bson.M{"$set": bson.M{"name": normalize.Name(name), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a team by key. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, key string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"key": normalize.TeamKey(key)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// All returns every team ordered by key.
func (s *Store) All(ctx context.Context) ([]models.Team, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var teams []models.Team
	if err := cur.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// KeysExist reports which of the given keys exist, preserving input order
// in the returned missing list.
func (s *Store) KeysExist(ctx context.Context, keys []string) (missing []string, err error) {
	if len(keys) == 0 {
		return nil, nil
	}

	normalized := make([]string, 0, len(keys))
	for _, k := range keys {
		normalized = append(normalized, normalize.TeamKey(k))
	}

	cur, err := s.c.Find(ctx, bson.M{"key": bson.M{"$in": normalized}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	found := make(map[string]bool, len(normalized))
	for cur.Next(ctx) {
		var t models.Team
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		found[t.Key] = true
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	for _, k := range normalized {
		if !found[k] {
			missing = append(missing, k)
		}
	}
	return missing, nil
}
