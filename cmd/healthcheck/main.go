// Package main implements the container health probe. It is built as a
// small static binary so scratch-based images can run liveness checks
// without wget or curl.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultPort = "3001"

func main() {
	os.Exit(probe())
}

func probe() int {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "health check returned status %d\n", resp.StatusCode)
		return 1
	}
	return 0
}
