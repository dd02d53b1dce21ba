package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "List the stored messages of a session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			store, closeStore, err := cfg.newSessionStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			messages := cfg.newCache(store).ReadAll(ctx)

			if len(messages) == 0 {
				fmt.Fprintf(c.Root().Writer, "No messages stored for session %s\n", cfg.session)
				return nil
			}

			for _, m := range messages {
				fmt.Fprintf(c.Root().Writer, "%d\t%s\t%s\t%s\n",
					m.ID,
					m.Timestamp.Local().Format("2006-01-02 15:04:05"),
					m.Sender,
					m.Text,
				)
			}

			return nil
		},
	}
}

func clearCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Delete the stored messages of a session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			store, closeStore, err := cfg.newSessionStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			cfg.newCache(store).Clear(ctx)
			fmt.Fprintf(c.Root().Writer, "History cleared for session %s\n", cfg.session)
			return nil
		},
	}
}
