package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/RammasunW/tablefare/internal/alerts"
	"github.com/RammasunW/tablefare/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	db.Init()
	if err := alerts.ConfigureMailerFromEnv(); err != nil {
		log.Printf("mailer disabled: %v", err)
	}
	alerts.Init()

	e := newServer()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
