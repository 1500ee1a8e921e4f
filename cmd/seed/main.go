package main

import (
	"context"
	"time"

	"erp-admin/internal/common/models"
	"erp-admin/internal/config"
	"erp-admin/internal/database"
	"erp-admin/internal/features/permission"
	"erp-admin/internal/features/user"
	"erp-admin/internal/logger"
	"erp-admin/internal/policy"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Seed writes the default role policies and a bootstrap admin account.
// Existing documents are left alone so the command is safe to re-run.
func Seed(
	lc fx.Lifecycle,
	userRepo user.UserRepository,
	policyRepo permission.PolicyRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("🌱 Starting Database Seeding...")
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				// Role policies
				for _, role := range policy.Roles {
					if _, err := policyRepo.Find(ctx, role); err == nil {
						logger.Info("Policy exists, skipping", zap.String("role", string(role)))
						continue
					} else if err != mongo.ErrNoDocuments {
						logger.Error("Failed to read policy", zap.String("role", string(role)), zap.Error(err))
						continue
					}
					if err := policyRepo.Save(ctx, role, policy.Default(role), "seed"); err != nil {
						logger.Error("Failed to seed policy", zap.String("role", string(role)), zap.Error(err))
						continue
					}
					logger.Info("Seeded policy", zap.String("role", string(role)))
				}

				// Bootstrap admin
				if _, err := userRepo.FindByUsername(ctx, "admin"); err == nil {
					logger.Info("Admin user exists, skipping")
					return
				}

				hashed, err := bcrypt.GenerateFromPassword([]byte("ChangeMe123!"), bcrypt.DefaultCost)
				if err != nil {
					logger.Error("Failed to hash password", zap.Error(err))
					return
				}

				now := time.Now()
				admin := &models.User{
					Username:           "admin",
					Password:           string(hashed),
					Email:              "admin@example.com",
					FirstName:          "System",
					LastName:           "Admin",
					Role:               string(policy.RoleAdmin),
					Status:             models.StatusActive,
					MustChangePassword: true,
					CreatedAt:          now,
					UpdatedAt:          now,
				}
				if err := userRepo.Create(ctx, admin); err != nil {
					logger.Error("Failed to seed admin user", zap.Error(err))
					return
				}
				logger.Info("Seeded admin user", zap.String("username", "admin"))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			user.NewUserRepository,
			permission.NewPolicyRepository,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
