package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/evn/attendance_backendl/config"
	"github.com/evn/attendance_backendl/db"
	"github.com/evn/attendance_backendl/internal/routes"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on process environment")
	}

	cfg := config.NewConfig()
	database := db.InitDB(cfg.DatabaseDSN)
	defer database.Close()

	redisClient := config.NewRedisClient()
	defer redisClient.Close()

	router, jobs := routes.Setup(cfg, database, redisClient)

	if err := jobs.Start(context.Background()); err != nil {
		log.Fatalf("start enforcement jobs: %v", err)
	}
	defer jobs.Stop()

	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("🚀 Server starting on %s", serverAddress)
	log.Fatal(http.ListenAndServe(serverAddress, router))
}
