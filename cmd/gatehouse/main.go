package main

import (
	"flag"
	"log"

	"github.com/aussiebroadwan/gatehouse/internal/auth/app"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before reading the environment")
	flag.Parse()

	if err := app.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("failed to load env file: %v", err)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
