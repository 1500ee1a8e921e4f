package main

import (
	"context"
	"fmt"
	"log"

	"erp-admin/internal/cache"
	common_api "erp-admin/internal/common/api"
	"erp-admin/internal/config"
	"erp-admin/internal/database"
	"erp-admin/internal/features/audit"
	"erp-admin/internal/features/auth"
	"erp-admin/internal/features/permission"
	"erp-admin/internal/features/system"
	"erp-admin/internal/features/user"
	"erp-admin/internal/logger"
	"erp-admin/internal/middleware"
	"erp-admin/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for _, route := range routes {
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database & Cache
			database.NewDatabase,
			cache.NewRedis,

			// Initialize Repository
			audit.NewAuditRepository,
			user.NewUserRepository,
			permission.NewPolicyRepository,
			func(r user.UserRepository) audit.UserFinder { return r },

			// Initialize WebSocket hub
			system.NewWebSocketController,
			func(h *system.WebSocketController) permission.Broadcaster { return h },

			// Initialize Service
			audit.NewAuditService,
			user.NewUserService,
			auth.NewAuthService,
			permission.NewPermissionService,
			func(s permission.PermissionService) middleware.PolicyProvider { return s },

			// Initialize Controller
			audit.NewAuditController,
			user.NewUserController,
			auth.NewAuthController,
			permission.NewPermissionController,

			// Initialize Api (Routes)
			AsRoute(audit.NewAuditApi),
			AsRoute(user.NewUserApi),
			AsRoute(auth.NewAuthApi),
			AsRoute(permission.NewPermissionApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},
			RegisterAllRoutesWithAnnotation,
			StartServer,
		),
	)

	app.Run()
}
