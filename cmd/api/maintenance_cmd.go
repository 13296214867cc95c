package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type checkTimeoutsCmd struct{}

func (c *checkTimeoutsCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "check-timeouts",
		Short: "Run one timeout scanner pass and print its report",
	}
}

func (c *checkTimeoutsCmd) run(cli *sagaCLI, cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := cli.App(ctx)
	if err != nil {
		return err
	}
	report := app.JobCheckTimeouts(ctx)
	out, err := json.Marshal(report)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if report.Errors > 0 {
		return fmt.Errorf("%d sagas could not be handled", report.Errors)
	}
	return nil
}

type purgeProcessedCmd struct{}

func (c *purgeProcessedCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-processed",
		Short: "Delete idempotency records older than the retention window",
	}
}

func (c *purgeProcessedCmd) run(cli *sagaCLI, cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := cli.App(ctx)
	if err != nil {
		return err
	}
	deleted, err := app.JobPurgeProcessed(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %s processed messages\n", humanize.Comma(deleted))
	return nil
}

type ensureTopicsCmd struct{}

func (c *ensureTopicsCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-topics",
		Short: "Create the command, event and dead-letter topics",
	}
}

func (c *ensureTopicsCmd) run(cli *sagaCLI, cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := cli.App(ctx)
	if err != nil {
		return err
	}
	if err = app.EnsureTopics(ctx); err != nil {
		return err
	}
	for _, topic := range app.AllTopics() {
		fmt.Fprintln(cmd.OutOrStdout(), topic)
	}
	return nil
}
