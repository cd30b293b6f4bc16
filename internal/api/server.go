// Package api is the HTTP boundary: JSON routes for guests and admins on a
// gin engine.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nihanthkethireddy/invite/internal/guests"
	"github.com/nihanthkethireddy/invite/internal/metrics"
	"github.com/nihanthkethireddy/invite/internal/models"
)

// GuestService is the subset of guests.Service the routes need.
type GuestService interface {
	LookupByPhone(ctx context.Context, phone string) (*models.Guest, error)
	UpsertProfile(ctx context.Context, name, phone string) (*models.Guest, error)
	SaveRSVP(ctx context.Context, in guests.RSVPInput) (*models.Guest, error)
	AdminUpsert(ctx context.Context, in guests.AdminInput) (*models.Guest, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, opts guests.ListOptions) ([]models.Guest, error)
	Summary(ctx context.Context) (models.Summary, error)
}

// Options configures the router.
type Options struct {
	Log           zerolog.Logger
	Metrics       *metrics.Metrics
	CORSOrigins   []string
	AdminPassword string
	JWTSecret     string
	Now           func() time.Time
}

// Server holds the handlers.
type Server struct {
	guests GuestService
	log    zerolog.Logger
	auth   *adminAuth
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(svc GuestService, opts Options) *gin.Engine {
	log := opts.Log.With().Str("component", "api").Logger()
	s := &Server{
		guests: svc,
		log:    log,
		auth:   newAdminAuth(opts.AdminPassword, opts.JWTSecret, opts.Now),
	}
	if !s.auth.enabled() {
		log.Warn().Msg("ADMIN_PASSWORD not set, admin routes are open")
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(requestLogger(log), gin.Recovery())
	if opts.Metrics != nil {
		r.Use(instrument(opts.Metrics))
	}
	r.Use(corsMiddleware(opts.CORSOrigins))

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/guest", s.getGuest)
		api.POST("/guest", s.saveProfile)
		api.POST("/rsvp", s.saveRSVP)

		admin := api.Group("/admin")
		admin.POST("/login", s.auth.login)

		protected := admin.Group("", s.auth.middleware())
		{
			protected.GET("/guests", s.listGuests)
			protected.POST("/guests", s.adminSave)
			protected.DELETE("/guests/:id", s.deleteGuest)
			protected.GET("/summary", s.summary)
		}
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	})
}
