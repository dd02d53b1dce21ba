package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/chatwidget/pkg/model"
	"github.com/m-mizutani/chatwidget/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const emptyStateText = "👋 Hi there! How can I help you today?"

func chatCommand() *cli.Command {
	var (
		cfg     config
		message string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "message",
			Aliases:     []string{"m"},
			Usage:       "Send a single message, print the reply and exit",
			Destination: &message,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, responderFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Open the chat panel and talk to the agent",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			prof, err := loadProfile(cfg.profilePath)
			if err != nil {
				return err
			}

			store, closeStore, err := cfg.newSessionStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			responder, err := cfg.newResponder(ctx, prof, c.IsSet("response-delay"))
			if err != nil {
				return err
			}

			panel := chat.NewPanel(cfg.newCache(store), responder)
			panel.Open(ctx)
			defer panel.Close()

			w := c.Root().Writer

			// One-shot mode
			if message != "" {
				reply, err := panel.Send(ctx, message)
				if err != nil {
					return goerr.Wrap(err, "failed to send message")
				}
				printMessage(w, reply)
				return nil
			}

			fmt.Fprintf(w, "Chat session %s started. Type 'exit' to quit, '/clear' to clear history.\n", cfg.session)
			messages := panel.Messages()
			if len(messages) == 0 {
				fmt.Fprintln(w, emptyStateText)
			}
			for _, m := range messages {
				printMessage(w, m)
			}

			rlCfg := &readline.Config{
				Prompt:          "> ",
				Stdout:          w,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			}
			if r := c.Root().Reader; r != nil && r != os.Stdin {
				rlCfg.Stdin = io.NopCloser(r)
			}
			rl, err := readline.NewEx(rlCfg)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "exit":
					fmt.Fprintf(w, "\nChat session completed\n")
					return nil
				case "/clear":
					panel.ClearHistory(ctx)
					fmt.Fprintln(w, "History cleared")
					continue
				}

				reply, err := sendWithSpinner(ctx, panel, line, w)
				if err != nil {
					fmt.Fprintf(w, "cannot send: %v\n", err)
					continue
				}
				printMessage(w, reply)
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}

// sendWithSpinner submits text and shows a spinner until the reply arrives.
// Ctrl-C while waiting cancels the request.
func sendWithSpinner(ctx context.Context, panel *chat.Panel, text string, w io.Writer) (*model.Message, error) {
	done, err := panel.Submit(ctx, text)
	if err != nil {
		return nil, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " waiting for reply..."
	s.Start()
	defer s.Stop()

	select {
	case reply := <-done:
		return reply, nil
	case <-sigCh:
		panel.Cancel()
		return <-done, nil
	}
}

func printMessage(w io.Writer, m *model.Message) {
	fmt.Fprintf(w, "[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), m.Sender, m.Text)
}
