package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/server"
)

// debug runs the api with the scheduled jobs on HTTP_PORT, 4020 by default.
func main() {
	httpPort := os.Getenv("HTTP_PORT")
	if httpPort == "" {
		httpPort = "4020"
	}

	if err := server.Start(httpPort, true); err != nil {
		logrus.Fatal(err)
	}
}
