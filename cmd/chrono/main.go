package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/eleven-am/chrono/internal/cli"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
