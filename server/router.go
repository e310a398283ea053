package server

import (
	"fmt"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	errs "github.com/epicshot/messaging/errors"
	"github.com/epicshot/messaging/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("messagetype", func(fl validator.FieldLevel) bool {
			return models.ValidMessageType(fl.Field().String())
		})
	}
}

func (s *Server) setupRouter() *gin.Engine {
	registerValidations()

	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: 5,
	})
	sendLimiter := ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errs.ErrorHandler,
		KeyFunc:      messageRateKey,
	})

	apirouter := router.Group("/api/v1")
	apirouter.GET("/ws", s.handleWebSocket())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.POST("/messages", sendLimiter, s.handleSendMessage())
	authorized.GET("/messages/unread/count", s.handleUnreadCount())
	authorized.GET("/messages/peers", s.handleMessagingPeers())
	authorized.POST("/messages/read", s.handleMarkRead())
	authorized.GET("/messages/:id", s.handleGetMessages())
	authorized.PUT("/messages/:id", s.handleEditMessage())
	authorized.DELETE("/messages/:id", s.handleDeleteMessage())
	authorized.POST("/messages/:id/reactions", s.handleToggleReaction())
	authorized.GET("/messages/:id/reactions", s.handleGetReactions())
	authorized.GET("/conversations", s.handleGetConversations())
	authorized.POST("/users/online-status", s.handleOnlineStatus())
	authorized.GET("/users/online", s.handleGetOnlineUsers())
}
