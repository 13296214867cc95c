package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"saga-orchestrator/application"
	"saga-orchestrator/utils/configs"
	"saga-orchestrator/utils/gpooling"
	logger2 "saga-orchestrator/utils/logger"
)

type command interface {
	registerFlags() *cobra.Command
	run(cli *sagaCLI, cmd *cobra.Command, args []string) error
}

// sagaCLI boots the application lazily, so every subcommand shares one wiring path.
type sagaCLI struct {
	rootCmd *cobra.Command

	// boot builds the application; tests replace it.
	boot func(ctx context.Context) (*application.SagaApplication, error)
	app  *application.SagaApplication
	pool *gpooling.Pool
}

func newSagaCLI() *sagaCLI {
	c := &sagaCLI{}
	c.boot = c.bootFromConfig

	serve := &serveCmd{}
	c.rootCmd = &cobra.Command{
		Use:          "saga-orchestrator",
		Short:        "saga-orchestrator coordinates deposit, withdrawal and order-buy sagas",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve.run(c, cmd, args)
		},
		PersistentPostRunE: c.Close,
	}

	c.addCmd(serve)
	c.addCmd(&checkTimeoutsCmd{})
	c.addCmd(&purgeProcessedCmd{})
	c.addCmd(&ensureTopicsCmd{})
	return c
}

// Exec also closes the application when a command fails, cobra skips post-run hooks then.
func (c *sagaCLI) Exec() error {
	defer c.Close(c.rootCmd, nil)
	return c.rootCmd.Execute()
}

func (c *sagaCLI) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

func (c *sagaCLI) App(ctx context.Context) (*application.SagaApplication, error) {
	if c.app == nil {
		app, err := c.boot(ctx)
		if err != nil {
			return nil, err
		}
		c.app = app
	}
	return c.app, nil
}

func (c *sagaCLI) bootFromConfig(ctx context.Context) (*application.SagaApplication, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	lg, err := logger2.NewLogger(config.ENV)
	if err != nil {
		return nil, errors.Wrap(err, "logger")
	}
	c.pool, err = gpooling.NewPooling(config.MaxPoolSize, lg)
	if err != nil {
		return nil, errors.Wrap(err, "pool")
	}
	app, err := application.NewSagaApplication(ctx, config, lg, c.pool)
	if err != nil {
		lg.Error("init_application_err", zap.Error(err))
		c.pool.Release()
		c.pool = nil
		return nil, err
	}
	return app, nil
}

// Close needs cobra parameters for use from rootCmd.
func (c *sagaCLI) Close(cmd *cobra.Command, args []string) error {
	if c.app != nil {
		c.app.Close()
		_ = c.app.Logger.Sync()
		c.app = nil
	}
	if c.pool != nil {
		c.pool.Release()
		c.pool = nil
	}
	return nil
}
