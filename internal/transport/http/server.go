package http

import (
	"net/http"
	"slices"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/vovakirdan/wiredm/internal/auth"
	"github.com/vovakirdan/wiredm/internal/config"
	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/metrics"
	"github.com/vovakirdan/wiredm/internal/service/chat"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Config   config.Config
	Auth     *auth.Service
	Resolver *auth.Resolver
	Chat     *chat.Service
	Hub      *core.Hub
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics. The route is omitted when nil.
	Gatherer prometheus.Gatherer
	Logger   *zerolog.Logger
}

// NewRouter builds the handler serving every route. /ws is served directly
// on the mux; everything else goes through the gin engine.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.Config.Tracing.ServiceName))
	r.Use(d.Metrics.HTTPMiddleware())
	r.Use(LoggerMiddleware(logger))
	r.Use(corsMiddleware(d.Config.HTTP.CORSOrigins))

	r.GET("/health", healthHandler)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	apiHandlers := NewAPIHandlers(d.Auth, logger)
	userHandlers := NewUserHandlers(d.Chat, logger)
	messageHandlers := NewMessageHandlers(d.Chat, logger)
	wsHandler := NewWSHandler(d.Hub, d.Resolver, d.Config.WS, d.Metrics, logger)

	api := r.Group("/api")
	if d.Config.HTTP.RateLimit > 0 {
		api.Use(rateLimitMiddleware(d.Config.HTTP.RateLimit))
	}
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(d.Resolver, logger))
	protected.GET("/me", apiHandlers.Me)
	protected.PUT("/me/avatar", apiHandlers.UpdateAvatar)
	protected.GET("/users", userHandlers.ListUsers)
	protected.GET("/conversations/:username/messages", messageHandlers.ListConversation)
	protected.POST("/messages", messageHandlers.SendMessage)
	protected.POST("/messages/:uuid/reactions", messageHandlers.React)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.Handle("/", r)
	return mux
}

// NewServer wraps handler in an http.Server configured from cfg.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// rateLimitMiddleware allows perSecond requests per client IP.
func rateLimitMiddleware(perSecond int) gin.HandlerFunc {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: uint(perSecond),
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "Too many requests. Try again in " + time.Until(info.ResetTime).String(),
				Code:  "rate_limited",
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
