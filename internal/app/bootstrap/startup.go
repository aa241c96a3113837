// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/planhub/internal/app/resources"
	governancestore "github.com/dalemusser/planhub/internal/app/store/governance"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/app/system/workers"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// auditSweeper runs between Startup and Shutdown.
var auditSweeper *workers.AuditSweep

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It is the
// place to load shared resources (like templates), warm caches, or perform
// any app-wide setup that depends on config and backends.
//
// PlanHub loads the shared template sets, guarantees the configured
// bootstrap administrator can sign in, and starts the audit trail
// integrity worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
			return err
		}
	}

	if appCfg.AuditSweepInterval > 0 {
		auditSweeper = workers.NewAuditSweep(
			governancestore.New(deps.PlanHubMongoDatabase),
			logger,
			appCfg.AuditSweepInterval,
		)
		auditSweeper.Start()
	}

	return nil
}

// ensureAdmin guarantees the configured bootstrap administrator exists
// and can reach the admin area. An existing account is promoted and
// reactivated; a missing one is created as a Google sign-in account so
// the operator's first login works without a seeded password.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	db := deps.PlanHubMongoDatabase
	users := userstore.New(db)

	email = normalize.Email(email)

	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		if existing.IsAdmin() && existing.Status == models.UserActive {
			return nil
		}
		_, err = db.Collection("users").UpdateByID(ctx, existing.ID, bson.M{"$set": bson.M{
			"roles." + models.RoleAdmin: true,
			"status":                    models.UserActive,
			"updated_at":                time.Now(),
		}})
		if err != nil {
			return fmt.Errorf("promote bootstrap admin: %w", err)
		}
		logger.Info("promoted bootstrap admin", zap.String("email", email))
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	created, err := users.Create(ctx, models.User{
		Email:      email,
		FirstName:  "PlanHub",
		LastName:   "Admin",
		Roles:      map[string]bool{models.RoleAdmin: true},
		Tier:       models.TierStandard,
		Status:     models.UserActive,
		AuthMethod: models.AuthGoogle,
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	logger.Info("created bootstrap admin",
		zap.String("email", created.Email),
		zap.String("user_id", created.ID.Hex()))
	return nil
}
