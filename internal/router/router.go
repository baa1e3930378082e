package router

import (
	"ficehub/internal/handlers"
	"ficehub/internal/middleware"
	"ficehub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the services the routes are served from.
type Deps struct {
	DB       *gorm.DB
	Content  *services.ContentService
	Search   *services.SearchService
	Users    *services.UserService
	Taxonomy *services.TaxonomyService
	Logger   *zap.Logger
}

// New builds the engine with recovery, request logging and identity loading installed.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(d.Logger.Named("http")))
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	healthHandler := handlers.NewHealthHandler(d.DB)
	postHandler := handlers.NewPostHandler(d.Content, d.Search, d.Logger)
	commentHandler := handlers.NewCommentHandler(d.Content, d.Logger)
	voteHandler := handlers.NewVoteHandler(d.Content, d.Logger)
	userHandler := handlers.NewUserHandler(d.Users, d.Logger)
	taxonomyHandler := handlers.NewTaxonomyHandler(d.Taxonomy, d.Logger)

	r.GET("/healthz", healthHandler.Health)
	r.GET("/metrics", healthHandler.Metrics())

	api := r.Group("/api")
	api.Use(middleware.LoadUser(d.Users, d.Logger))

	// Public routes
	api.GET("/posts", postHandler.Search)
	api.GET("/posts/:slug", postHandler.Detail)
	api.GET("/posts/:slug/comments/:floor", commentHandler.Floor)
	api.GET("/users/:slug", userHandler.Profile)
	api.GET("/categories", taxonomyHandler.ListCategories)
	api.GET("/tags", taxonomyHandler.ListTags)
	api.POST("/users", userHandler.Register)

	// Protected routes
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", postHandler.Create)
		authorized.PATCH("/posts/:slug", postHandler.Update)
		authorized.DELETE("/posts/:slug", postHandler.Delete)

		authorized.POST("/posts/:slug/comments", commentHandler.Create)
		authorized.DELETE("/comments/:id", commentHandler.Delete)
		authorized.POST("/comments/:id/move", commentHandler.Move)

		authorized.POST("/vote/:type/:id", voteHandler.Vote)
		authorized.POST("/vote/:type/:id/down", voteHandler.Downvote)

		authorized.PATCH("/users/:slug/profile", userHandler.UpdateProfile)
		authorized.POST("/tags", taxonomyHandler.CreateTag)
	}

	// Admin routes
	admin := authorized.Group("")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/categories", taxonomyHandler.CreateCategory)
		admin.PATCH("/categories/:slug", taxonomyHandler.UpdateCategory)
		admin.POST("/score/:type/:id", voteHandler.AdjustScore)
	}
}
