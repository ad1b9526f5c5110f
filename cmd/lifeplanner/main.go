package main

import (
	"log"
	"os"

	"github.com/lifeplanner/core/cmd/lifeplanner/commands"
)

// @title LifePlanner API
// @version 1.0
// @description Life areas, goals, projects and tasks with cascading archive and restore.

// @contact.name LifePlanner
// @contact.url https://github.com/lifeplanner/core

// @license.name MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
