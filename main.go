package main

import (
	"log"

	"github.com/epicshot/messaging/config"
	"github.com/epicshot/messaging/db"
	"github.com/epicshot/messaging/realtime"
	"github.com/epicshot/messaging/server"
	"github.com/epicshot/messaging/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)
	userRepo := db.NewUserRepo(gormDB)
	conversationRepo := db.NewConversationRepo(gormDB)
	messageRepo := db.NewMessageRepo(gormDB)

	hub := realtime.NewHub()
	go hub.Run()

	identity := services.NewJWTIdentityVerifier(conf.JWTSecret, userRepo)
	messageService := services.NewMessageService(userRepo, conversationRepo, messageRepo, hub, conf)

	s := &server.Server{
		Config:         conf,
		MessageService: messageService,
		Identity:       identity,
		UserRepository: userRepo,
		Hub:            hub,
		DB:             *gormDB,
	}
	s.Start()
}
