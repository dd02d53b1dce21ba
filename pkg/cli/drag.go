package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/chatwidget/pkg/model"
	"github.com/m-mizutani/chatwidget/pkg/usecase/anchor"
	"github.com/m-mizutani/chatwidget/pkg/usecase/chat"
	"github.com/m-mizutani/chatwidget/pkg/usecase/widget"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// dragScript is a recorded sequence of host events replayed against the widget
type dragScript struct {
	Viewport model.Size     `yaml:"viewport"`
	Events   []widget.Event `yaml:"events"`
}

func loadDragScript(path string) (*dragScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read script", goerr.V("path", path))
	}

	var script dragScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, goerr.Wrap(err, "failed to parse script", goerr.V("path", path))
	}
	if script.Viewport.Width <= 0 || script.Viewport.Height <= 0 {
		return nil, goerr.New("script viewport must have positive size",
			goerr.V("path", path), goerr.V("viewport", script.Viewport))
	}

	return &script, nil
}

func dragCommand() *cli.Command {
	var (
		cfg        config
		scriptPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "script",
			Aliases:     []string{"f"},
			Usage:       "Path to YAML event script",
			Sources:     cli.EnvVars("CHATWIDGET_DRAG_SCRIPT"),
			Destination: &scriptPath,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "drag",
		Usage: "Replay pointer and viewport events against the launcher",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.withLogger(ctx)

			prof, err := loadProfile(cfg.profilePath)
			if err != nil {
				return err
			}

			script, err := loadDragScript(scriptPath)
			if err != nil {
				return err
			}

			store, closeStore, err := cfg.newSessionStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			// replies are never requested during a replay
			panel := chat.NewPanel(cfg.newCache(store), chat.NewMockResponder())

			frame := model.Frame{
				Viewport: script.Viewport,
				IconSize: prof.Launcher.IconSize,
			}
			wg := widget.New(frame, panel, anchor.WithMargin(prof.Launcher.Margin))

			w := c.Root().Writer
			printPosition(w, 0, "start", wg.Positioner().Position(), wg.Positioner().State(), panel.IsOpen())

			for i, ev := range script.Events {
				snap, err := wg.HandleEvent(ctx, ev)
				if err != nil {
					return goerr.Wrap(err, "failed to replay event", goerr.V("index", i))
				}
				printPosition(w, i+1, string(ev.Type), snap.Position, snap.State, snap.PanelOpen)

				if snap.Activated {
					if snap.PanelOpen {
						fmt.Fprintf(w, "    panel opened with %d message(s)\n", len(panel.Messages()))
					} else {
						fmt.Fprintln(w, "    panel closed")
					}
				}
			}

			return nil
		},
	}
}

func printPosition(w io.Writer, idx int, label string, pos model.Point, state anchor.State, open bool) {
	panel := "closed"
	if open {
		panel = "open"
	}
	fmt.Fprintf(w, "#%-3d %-7s (%g, %g)\t%s\tpanel=%s\n", idx, label, pos.X, pos.Y, state, panel)
}
