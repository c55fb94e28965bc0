package main

import (
	"os"

	"jude-e/backend/internal/app"
)

// @title           Jude-E Chat API
// @version         1.0
// @description     Orchestration backend for the Jude-E hospital chat assistant.
// @BasePath        /
func main() {
	os.Exit(app.Run())
}
