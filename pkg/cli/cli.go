package cli

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	return run(ctx, argv, os.Stdin, os.Stdout)
}

func run(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) *Error {
	cmd := newRootCommand()
	cmd.Reader = stdin
	cmd.Writer = stdout

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "chatwidget",
		Usage: "Chat widget with a draggable launcher and session-scoped history",
		Commands: []*cli.Command{
			chatCommand(),
			historyCommand(),
			clearCommand(),
			dragCommand(),
		},
	}
}
