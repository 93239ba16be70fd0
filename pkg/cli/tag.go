package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func tagCommand() *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "Tag operations",
		Commands: []*cli.Command{
			tagListCommand(),
			tagResolveCommand(),
		},
	}
}

func tagListCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List all canonical tags",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.load(c); err != nil {
				return err
			}
			ctx = cfg.setupLogging(ctx)

			rt, err := cfg.newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			tags, err := rt.notes.Tags(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list tags")
			}

			for _, tag := range tags {
				fmt.Fprintln(c.Root().Writer, tag)
			}
			return nil
		},
	}
}

func tagResolveCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a raw tag to its canonical form",
		ArgsUsage: "<tag>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.load(c); err != nil {
				return err
			}
			ctx = cfg.setupLogging(ctx)

			raw := strings.Join(c.Args().Slice(), " ")
			if raw == "" {
				return goerr.New("tag is required")
			}

			rt, err := cfg.newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			canonical, isNew, err := rt.resolver.Resolve(ctx, raw)
			if err != nil {
				return goerr.Wrap(err, "failed to resolve tag")
			}

			state := "existing"
			if isNew {
				state = "new"
			}
			fmt.Fprintf(c.Root().Writer, "%s -> %s (%s)\n", raw, canonical, state)
			return nil
		},
	}
}
