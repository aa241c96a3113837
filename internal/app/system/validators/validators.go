// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/planhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Core collections this app uses
	ensure("users", usersSchema())
	ensure("campaigns", campaignsSchema())
	ensure("governance", governanceSchema())
	ensure("teams", teamsSchema())

	// OAuth states are transient and shaped by a single writer; we still
	// ensure the collection exists so the TTL index has a home.
	ensure("oauth_states", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "first_name", "last_name", "display_name", "roles", "status"},
			"properties": bson.M{
				"email":           bson.M{"bsonType": "string", "pattern": "^[^@\\s]+@[^@\\s]+$"},
				"first_name":      bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"last_name":       bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"display_name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"display_name_ci": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"wrike_name":      bson.M{"bsonType": "string"},
				"roles":           bson.M{"bsonType": "object"},
				"permissions":     bson.M{"bsonType": "object"},
				"teams":           bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"tier":            bson.M{"enum": bson.A{"standard", "extended", "automation"}},
				"status":          bson.M{"enum": bson.A{"active", "suspended"}},
				"auth_method":     bson.M{"enum": bson.A{"password", "google"}},
				"password_hash":   bson.M{"bsonType": "string"},
			},
		},
	}
}

func campaignsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "title_ci", "status", "created_by", "created_at"},
			"properties": bson.M{
				"title":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"title_ci": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},

				"description": bson.M{"bsonType": "string"},

				"status": bson.M{"enum": bson.A{
					"draft", "in_review", "approved", "active", "completed", "archived",
				}},

				"assigned_to": bson.M{"bsonType": "objectId"},
				"team_id":     bson.M{"bsonType": "string"},
				"budget":      bson.M{"bsonType": bson.A{"double", "int", "long"}},
				"due_date":    bson.M{"bsonType": "date"},
				"tags":        bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"channel":     bson.M{"bsonType": "string"},
				"activities":  bson.M{"bsonType": "array"},

				"created_by": bson.M{"bsonType": "objectId"},
				"created_at": bson.M{"bsonType": "date"},
				"updated_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func governanceSchema() bson.M {
	// Review enums come from the canonical lists in the domain models.
	typeEnum := bson.A{}
	for _, t := range models.ReviewTypes {
		typeEnum = append(typeEnum, t)
	}
	priorityEnum := bson.A{}
	for _, p := range models.ReviewPriorities {
		priorityEnum = append(priorityEnum, p)
	}

	// The collection is dual-purpose (audit entries and review records),
	// so only the shared field is required and both shapes are described.
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"created_at"},
			"properties": bson.M{
				// audit entry shape
				"action":      bson.M{"bsonType": "string", "minLength": 1},
				"resource_id": bson.M{"bsonType": "string"},
				"user_id":     bson.M{"bsonType": "objectId"},
				"timestamp":   bson.M{"bsonType": "date"},
				"metadata":    bson.M{"bsonType": "object"},
				"hash":        bson.M{"bsonType": "string", "pattern": "^[0-9a-f]{64}$"},

				// review record shape
				"type":         bson.M{"enum": bson.A{"review"}},
				"status":       bson.M{"enum": bson.A{"pending", "approved", "rejected"}},
				"campaign_id":  bson.M{"bsonType": "objectId"},
				"submitted_by": bson.M{"bsonType": "objectId"},
				"review_type":  bson.M{"enum": typeEnum},
				"priority":     bson.M{"enum": priorityEnum},
				"notes":        bson.M{"bsonType": "string"},
				"decided_by":   bson.M{"bsonType": "objectId"},
				"decided_at":   bson.M{"bsonType": "date"},

				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func teamsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"key", "name"},
			"properties": bson.M{
				"key":        bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name":       bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"created_at": bson.M{"bsonType": "date"},
				"updated_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
