package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errNoRole         = errors.New("user must have at least one role")
	errBadRole        = errors.New(`role must be "admin"|"editor"|"reviewer"|"viewer"|"service"`)
	errBadTier        = errors.New(`tier must be "standard"|"extended"|"automation"`)
	errBadStatus      = errors.New(`status must be "active"|"suspended"`)
)

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by normalized email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetManyByID loads the users for a set of IDs into a map keyed by hex ID.
// Missing users are simply absent from the map.
func (s *Store) GetManyByID(ctx context.Context, ids []primitive.ObjectID) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID.Hex()] = &u
	}
	return out, cur.Err()
}

// Create inserts a new user after normalizing and validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.DisplayName = normalize.Name(u.DisplayName)
	if u.DisplayName == "" {
		u.DisplayName = u.FullName()
	}
	u.DisplayNameCI = text.Fold(u.DisplayName)
	u.WrikeName = normalize.Name(u.WrikeName)
	if u.Status == "" {
		u.Status = models.UserActive
	}

	if err := validateRoles(u.Roles); err != nil {
		return models.User{}, err
	}
	if u.Tier != "" && !models.ValidTier(u.Tier) {
		return models.User{}, errBadTier
	}
	if u.Status != models.UserActive && u.Status != models.UserSuspended {
		return models.User{}, errBadStatus
	}

	for i, team := range u.Teams {
		u.Teams[i] = normalize.TeamKey(team)
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Update holds the admin-editable fields of a user record.
type Update struct {
	FirstName   string
	LastName    string
	DisplayName string
	WrikeName   string
	Roles       map[string]bool
	Grants      map[string]bool
	Teams       []string
	Tier        string
	Status      string
	AuthMethod  string
}

// UpdateUser replaces the admin-editable fields of a user.
func (s *Store) UpdateUser(ctx context.Context, id primitive.ObjectID, upd Update) error {
	if err := validateRoles(upd.Roles); err != nil {
		return err
	}
	if upd.Tier != "" && !models.ValidTier(upd.Tier) {
		return errBadTier
	}
	if upd.Status != models.UserActive && upd.Status != models.UserSuspended {
		return errBadStatus
	}

	first := normalize.Name(upd.FirstName)
	last := normalize.Name(upd.LastName)
	display := normalize.Name(upd.DisplayName)
	if display == "" {
		display = first + " " + last
	}
	teams := make([]string, 0, len(upd.Teams))
	for _, team := range upd.Teams {
		teams = append(teams, normalize.TeamKey(team))
	}

	set := bson.M{
		"first_name":      first,
		"last_name":       last,
		"display_name":    display,
		"display_name_ci": text.Fold(display),
		"wrike_name":      normalize.Name(upd.WrikeName),
		"roles":           upd.Roles,
		"permissions":     upd.Grants,
		"teams":           teams,
		"tier":            upd.Tier,
		"status":          normalize.Status(upd.Status),
		"auth_method":     normalize.AuthMethod(upd.AuthMethod),
		"updated_at":      time.Now(),
	}

	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// UpdateWrikeName sets only the user's external tool identity. Used by
// the profile page so users can repair an export identity mismatch
// without an admin round trip.
func (s *Store) UpdateWrikeName(ctx context.Context, id primitive.ObjectID, wrikeName string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"wrike_name": normalize.Name(wrikeName),
		"updated_at": time.Now(),
	}})
	return err
}

// SetPassword stores a new bcrypt hash for the user.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now(),
	}})
	return err
}

// SetStatus activates or suspends a user.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, stat string) error {
	stat = normalize.Status(stat)
	if stat != models.UserActive && stat != models.UserSuspended {
		return errBadStatus
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     stat,
		"updated_at": time.Now(),
	}})
	return err
}

// CountActiveAdmins reports how many active accounts hold the admin
// role. The edit and delete guards use this to keep at least one
// working way into the admin area.
func (s *Store) CountActiveAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"roles." + models.RoleAdmin: true, "status": models.UserActive})
}

// Delete removes a user record and reports how many documents matched.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

func validateRoles(roles map[string]bool) error {
	held := 0
	for role, on := range roles {
		if !models.ValidRole(normalize.Role(role)) {
			return errBadRole
		}
		if on {
			held++
		}
	}
	if held == 0 {
		return errNoRole
	}
	return nil
}
