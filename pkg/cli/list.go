package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg   config
		limit int64
		tags  []string
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of notes to list",
			Value:       10,
			Sources:     cli.EnvVars("NOTELET_LIST_LIMIT"),
			Destination: &limit,
		},
		&cli.StringSliceFlag{
			Name:        "tag",
			Aliases:     []string{"t"},
			Usage:       "Only list notes holding this tag (repeatable, any match)",
			Destination: &tags,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List recent notes",
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

			var notes []*model.Note
			if len(tags) > 0 {
				notes, err = rt.notes.SearchByTags(ctx, tags, int(limit))
			} else {
				notes, err = rt.notes.ListRecent(ctx, int(limit))
			}
			if err != nil {
				return goerr.Wrap(err, "failed to list notes")
			}

			printNotes(c, notes)
			return nil
		},
	}
}

func printNotes(c *cli.Command, notes []*model.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(c.Root().Writer, "No notes found")
		return
	}

	for _, n := range notes {
		content := n.Content
		if idx := strings.IndexByte(content, '\n'); idx >= 0 {
			content = content[:idx]
		}
		if len(content) > 80 {
			content = content[:80] + "..."
		}
		fmt.Fprintf(c.Root().Writer, "%s\t%s\t[%s]\n", n.ID, content, strings.Join(n.Tags, ", "))
	}
}
