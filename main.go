//	@title			TaskMind Integrations API
//	@version		1.0
//	@description	Connects TaskMind users to Slack, Trello, Asana, Monday.com, Google Calendar and Zoom, and syncs meeting action items into them.

//	@contact.name	TaskMind
//	@contact.url	https://github.com/VatsalPandya47/taskmind

//	@license.name	MIT

//	@host		localhost:8080
//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the dashboard session token.

//	@securityDefinitions.apikey	ServiceKey
//	@in							header
//	@name						apikey
//	@description				Service role key for internal endpoints (also accepted as a Bearer token).

//go:generate swag init -g main.go -o api --outputTypes go --parseInternal

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/VatsalPandya47/taskmind/internal/bootstrap"
	"github.com/VatsalPandya47/taskmind/internal/config"
	"github.com/VatsalPandya47/taskmind/internal/version"

	_ "github.com/VatsalPandya47/taskmind/api" // swagger docs
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	// Check if command is provided
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Handle subcommands
	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("TaskMind integration server")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the integration server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()
	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
