package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/usecase/qa"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg         config
		topK        int64
		interactive bool
		showSources bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k",
			Aliases:     []string{"k"},
			Usage:       "Number of notes to retrieve for context",
			Value:       qa.DefaultTopK,
			Sources:     cli.EnvVars("NOTELET_ASK_TOP_K"),
			Destination: &topK,
		},
		&cli.BoolFlag{
			Name:        "interactive",
			Aliases:     []string{"i"},
			Usage:       "Open an interactive question loop",
			Destination: &interactive,
		},
		&cli.BoolFlag{
			Name:        "sources",
			Usage:       "Show the retrieved notes under the answer",
			Destination: &showSources,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question from stored notes",
		ArgsUsage: "[question]",
		Flags:     flags,
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

			if interactive {
				return askLoop(ctx, c, rt, int(topK), showSources)
			}

			question := strings.Join(c.Args().Slice(), " ")
			if question == "" {
				return goerr.New("question is required")
			}
			return askOnce(ctx, c, rt, question, int(topK), showSources)
		},
	}
}

func askOnce(ctx context.Context, c *cli.Command, rt *runtime, question string, topK int, showSources bool) error {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(os.Stderr), spinner.WithSuffix(" thinking..."))
	sp.Start()
	answer, err := rt.answers.Answer(ctx, question, topK)
	sp.Stop()
	if err != nil {
		return goerr.Wrap(err, "failed to answer question")
	}

	fmt.Fprintf(c.Root().Writer, "%s\n", answer.Answer)

	if showSources && len(answer.Documents) > 0 {
		fmt.Fprintf(c.Root().Writer, "\nSources:\n")
		printNotes(c, answer.Documents)
	}
	return nil
}

func askLoop(ctx context.Context, c *cli.Command, rt *runtime, topK int, showSources bool) error {
	rl, err := readline.New("? ")
	if err != nil {
		return goerr.Wrap(err, "failed to open prompt")
	}
	defer rl.Close()

	fmt.Fprintln(c.Root().Writer, "Ask questions about your notes. Type 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return goerr.Wrap(err, "failed to read question")
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if question == "exit" {
			return nil
		}

		if err := askOnce(ctx, c, rt, question, topK, showSources); err != nil {
			return err
		}
	}
}
