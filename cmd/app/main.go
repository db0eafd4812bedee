package main

import (
	"FaceLiveness/internal/config"
	"FaceLiveness/pkg/log"
	"FaceLiveness/pkg/redis"
	"github.com/joho/godotenv"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	envErr := godotenv.Load()
	logger := log.NewLogger()
	if envErr != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", envErr)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	cfg, err := config.LoadLiveness(validator)
	if err != nil {
		logger.Fatal(err)
	}

	modeStore := redis.New(cfg.ActiveCheckDefault)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithConfig(cfg),
		config.WithDatabase(),
		config.WithModeStore(modeStore),
		config.WithS3Client(),
		config.WithFaceLocator(),
		config.WithClassifier(),
		config.WithMiddleware(),
		config.WithBcryptUtils(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterHandler(); err != nil {
		logger.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
	server.Shutdown(10 * time.Second)
}
