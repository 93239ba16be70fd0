package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "notelet",
		Usage: "Note capture with structure extraction and semantic search",
		Commands: []*cli.Command{
			serveCommand(),
			newCommand(),
			listCommand(),
			searchCommand(),
			askCommand(),
			tagCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
