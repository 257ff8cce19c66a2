package main

import (
	"context"
	"fmt"
	"os"

	"github.com/glowfit/glowfit/internal/cli"
	"github.com/glowfit/glowfit/internal/pkg/billing"
	"github.com/glowfit/glowfit/internal/pkg/database"
	"github.com/glowfit/glowfit/internal/pkg/env"
	"github.com/glowfit/glowfit/internal/pkg/logger"
)

func main() {
	env.SetupEnvFile()
	log := logger.Setup(env.GetEnv("LOG_LEVEL", "warn"))
	defer func() { _ = log.Sync() }()

	root := cli.NewRootCmd(func() (cli.SubscriptionAdmin, error) {
		database.SetupDatabase()
		return billing.NewServiceFromDB(database.GetDB(), billing.WithLogger(log)), nil
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
