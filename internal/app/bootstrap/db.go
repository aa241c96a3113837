// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/planhub/internal/app/store/oauthstate"
	rolestore "github.com/dalemusser/planhub/internal/app/store/roles"
	"github.com/dalemusser/planhub/internal/app/system/indexes"
	"github.com/dalemusser/planhub/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection every store runs on.
// The returned deps are handed to EnsureSchema, Startup, BuildHandler,
// and Shutdown.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		PlanHubMongoClient:   client,
		PlanHubMongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the collections, JSON-Schema validators, and
// indexes the stores rely on, then seeds the built-in role and tier
// configurations the permission resolver reads.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.PlanHubMongoDatabase

	// Collections and validators first so the index pass never races
	// collection creation. Validators are best-effort: deployments
	// without collMod support log the skip and keep going.
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Warn("collection validators incomplete", zap.Error(err))
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	// The oauth_states TTL index lives with its store; the reconciler
	// above covers the durable collections.
	if err := oauthstate.New(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure oauth state indexes: %w", err)
	}

	if err := rolestore.New(db).SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed role and tier defaults: %w", err)
	}

	logger.Info("database schema ensured")
	return nil
}
