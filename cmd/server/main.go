package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/NatalyaAtyukova/chat-service/internal/auth"
	"github.com/NatalyaAtyukova/chat-service/internal/cache"
	"github.com/NatalyaAtyukova/chat-service/internal/chat"
	"github.com/NatalyaAtyukova/chat-service/internal/database"
	"github.com/NatalyaAtyukova/chat-service/internal/handlers"
	"github.com/NatalyaAtyukova/chat-service/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()
	defer database.DB.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	if err := database.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	registry := chat.NewRegistry()
	svc := chat.NewService(chat.DBStore{}, registry, logger)

	// The journal is optional: without REDIS_ADDR the service runs the same,
	// it just publishes nothing.
	if os.Getenv("REDIS_ADDR") != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.Warnf("redis unavailable, message journal disabled: %v", err)
		} else {
			svc.SetJournal(cache.MessageJournal{})
			logger.Info("message journal enabled")
		}
	}

	logmw := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// user endpoints
	mux.Handle("/user/create", logmw(http.HandlerFunc(handlers.CreateUserHandler)))
	mux.Handle("/user/login", logmw(http.HandlerFunc(handlers.LoginHandler)))
	mux.Handle("/user/search", logmw(http.HandlerFunc(handlers.SearchUsersHandler)))

	// friend endpoints
	mux.Handle("/friends/request", logmw(http.HandlerFunc(handlers.SendFriendRequestHandler)))
	mux.Handle("/friends/respond", logmw(http.HandlerFunc(handlers.RespondFriendRequestHandler)))
	mux.Handle("/friends/requests", logmw(http.HandlerFunc(handlers.ListPendingRequestsHandler)))
	mux.Handle("/friends/list", logmw(http.HandlerFunc(handlers.ListFriendsHandler)))

	// message endpoints
	mux.Handle("/messages/send", logmw(http.HandlerFunc(handlers.SendMessageHandler(svc))))
	mux.Handle("/messages/list", logmw(http.HandlerFunc(handlers.ListMessagesHandler)))

	// live chat feed
	mux.Handle("/ws/chat/", logmw(http.HandlerFunc(handlers.ChatWSHandler(logger, svc, registry))))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	server := &http.Server{Handler: mux}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
	}
}
