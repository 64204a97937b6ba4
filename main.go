package main

import (
	"log"

	"github.com/unimarket/unimarket-chat/config"
	"github.com/unimarket/unimarket-chat/db"
	"github.com/unimarket/unimarket-chat/server"
	"github.com/unimarket/unimarket-chat/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)
	authRepo := db.NewAuthRepo(gormDB)
	messageRepo := db.NewMessageRepo(gormDB)

	authService := services.NewAuthService(authRepo, conf)
	messageService := services.NewMessageService(messageRepo, authRepo, conf)

	s := &server.Server{
		Config:         conf,
		AuthRepository: authRepo,
		AuthService:    authService,
		MessageService: messageService,
		Hub:            server.NewChatHub(messageService),
		DB:             db.GormDB{},
	}
	s.Start()
}
