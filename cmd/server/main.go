package main

import (
	"github.com/parley-ai/parley/backend/internal/server"
	"github.com/parley-ai/parley/backend/internal/util"
	"github.com/parley-ai/parley/backend/pkg/logger"
	"github.com/parley-ai/parley/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
