package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epicshot/messaging/config"
	"github.com/epicshot/messaging/db"
	"github.com/epicshot/messaging/realtime"
	"github.com/epicshot/messaging/services"
)

type Server struct {
	Config         *config.Config
	MessageService services.MessageService
	Identity       services.IdentityVerifier
	UserRepository db.UserRepository
	Hub            *realtime.Hub
	DB             db.GormDB
}

func (s *Server) Start() {
	port := s.Config.Port
	if port == 0 {
		port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.setupRouter(),
	}

	go func() {
		log.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}
