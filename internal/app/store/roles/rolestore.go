package rolestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a role or tier name is not configured.
var ErrNotFound = errors.New("role or tier not found")

// Store provides access to role and tier configuration. Roles and tiers
// share a document shape but live in separate collections because they
// are independent permission axes.
type Store struct {
	roles *mongo.Collection
	tiers *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		roles: db.Collection("roles"),
		tiers: db.Collection("tiers"),
	}
}

// GetRole loads a role config by name. Returns ErrNotFound when the
// name is not configured.
func (s *Store) GetRole(ctx context.Context, name string) (*models.RoleConfig, error) {
	return getByName(ctx, s.roles, name)
}

// GetTier loads a tier config by name. Returns ErrNotFound when the
// name is not configured.
func (s *Store) GetTier(ctx context.Context, name string) (*models.RoleConfig, error) {
	return getByName(ctx, s.tiers, name)
}

func getByName(ctx context.Context, c *mongo.Collection, name string) (*models.RoleConfig, error) {
	var rc models.RoleConfig
	err := c.FindOne(ctx, bson.M{"name": normalize.Role(name)}).Decode(&rc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// ListRoles returns all role configs sorted by name.
func (s *Store) ListRoles(ctx context.Context) ([]models.RoleConfig, error) {
	return listAll(ctx, s.roles)
}

// ListTiers returns all tier configs sorted by name.
func (s *Store) ListTiers(ctx context.Context) ([]models.RoleConfig, error) {
	return listAll(ctx, s.tiers)
}

func listAll(ctx context.Context, c *mongo.Collection) ([]models.RoleConfig, error) {
	cur, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.RoleConfig
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SeedDefaults inserts the built-in role and tier configs into any
// collection that is still empty. Existing documents are left alone so
// administrator edits survive restarts.
func (s *Store) SeedDefaults(ctx context.Context) error {
	if err := seed(ctx, s.roles, models.BuiltinRoles); err != nil {
		return err
	}
	return seed(ctx, s.tiers, models.BuiltinTiers)
}

func seed(ctx context.Context, c *mongo.Collection, defaults []models.RoleConfig) error {
	n, err := c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(defaults))
	for _, rc := range defaults {
		rc.ID = primitive.NewObjectID()
		rc.CreatedAt = now
		rc.UpdatedAt = now
		docs = append(docs, rc)
	}
	_, err = c.InsertMany(ctx, docs)
	return err
}
