// Package main provides the entry point for the mock interview voice server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "interview_agent",
	Short: "Voice mock interview server",
	Long:  "interview_agent runs Alex, a voice interviewer that walks a candidate through behavioral, technical and coding rounds and closes with feedback.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
