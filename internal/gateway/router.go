package gateway

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/aquanex/aquachat/internal/config"
)

// NewRouter assembles the gin engine with the full middleware chain and
// routes.
func NewRouter(cfg *config.Settings, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/chat", BearerAuth(cfg.APIAuthToken), h.Chat)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.AllowCredentials = true
	if len(origins) == 1 && origins[0] == "*" {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}
