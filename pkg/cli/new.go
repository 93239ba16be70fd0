package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/usecase/note"
	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	var (
		cfg       config
		inputPath string
		tags      []string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to a file containing note content (reads the argument otherwise)",
			Sources:     cli.EnvVars("NOTELET_INPUT"),
			Destination: &inputPath,
		},
		&cli.StringSliceFlag{
			Name:        "tag",
			Aliases:     []string{"t"},
			Usage:       "Tag to attach (repeatable)",
			Destination: &tags,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "new",
		Usage:     "Create a note from an argument or a file",
		ArgsUsage: "[content]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.load(c); err != nil {
				return err
			}
			ctx = cfg.setupLogging(ctx)

			content := strings.Join(c.Args().Slice(), " ")
			if inputPath != "" {
				data, err := os.ReadFile(inputPath)
				if err != nil {
					return goerr.Wrap(err, "failed to read input file", goerr.V("path", inputPath))
				}
				content = string(data)
			}
			if strings.TrimSpace(content) == "" {
				return goerr.New("note content is required")
			}

			rt, err := cfg.newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(os.Stderr), spinner.WithSuffix(" processing note..."))
			sp.Start()
			created, err := rt.notes.Process(ctx, note.ProcessInput{
				Content: content,
				Tags:    tags,
			})
			sp.Stop()
			if err != nil {
				return goerr.Wrap(err, "failed to process note")
			}

			fmt.Fprintf(c.Root().Writer, "Note created: %s\n", created.ID)
			if len(created.Tags) > 0 {
				fmt.Fprintf(c.Root().Writer, "Tags: %s\n", strings.Join(created.Tags, ", "))
			}
			if created.Metadata != nil {
				fmt.Fprintf(c.Root().Writer, "Type: %s (confidence %.2f)\n",
					created.Metadata.StructureType, created.Metadata.Confidence)
			}
			return nil
		},
	}
}
