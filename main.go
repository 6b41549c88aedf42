package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/schemalink/schemalink/cmd"
)

func main() {
	// Optional .env file for API keys and local overrides.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
