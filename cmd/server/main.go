// Package main is the entry point for the stepseq API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/stepseq/pkg/api"
	"github.com/james-see/stepseq/pkg/logging"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log := logging.New(*level, os.Stderr)

	flush, err := api.InitSentry(os.Getenv("SENTRY_DSN"))
	if err != nil {
		log.WithError(err).Warn("error reporting disabled")
		flush = func() {}
	}
	defer flush()

	fmt.Printf("Starting stepseq API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, log); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		flush()
		os.Exit(1)
	}
}
