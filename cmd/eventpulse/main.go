package main

import (
	"github.com/eventpulse/eventpulse/cmd/cmd"
	"github.com/eventpulse/eventpulse/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
