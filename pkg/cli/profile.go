package cli

import (
	"os"
	"time"

	"github.com/m-mizutani/chatwidget/pkg/usecase/anchor"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// profile customizes the widget: what the mock agent says and how the
// launcher is laid out
type profile struct {
	Responses     []string      `yaml:"responses"`
	ResponseDelay time.Duration `yaml:"response_delay"`
	SystemPrompt  string        `yaml:"system_prompt"`
	Launcher      launcher      `yaml:"launcher"`
}

type launcher struct {
	IconSize float64 `yaml:"icon_size"`
	Margin   float64 `yaml:"margin"`
}

func defaultProfile() *profile {
	return &profile{
		Launcher: launcher{
			IconSize: anchor.DefaultIconSize,
			Margin:   anchor.DefaultMargin,
		},
	}
}

// loadProfile reads the profile at path. An empty path yields the defaults.
func loadProfile(path string) (*profile, error) {
	prof := defaultProfile()
	if path == "" {
		return prof, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read profile", goerr.V("path", path))
	}
	if err := yaml.Unmarshal(data, prof); err != nil {
		return nil, goerr.Wrap(err, "failed to parse profile", goerr.V("path", path))
	}

	if prof.Launcher.IconSize <= 0 {
		return nil, goerr.New("launcher icon_size must be positive",
			goerr.V("path", path), goerr.V("icon_size", prof.Launcher.IconSize))
	}
	if prof.ResponseDelay < 0 {
		return nil, goerr.New("response_delay must not be negative", goerr.V("path", path))
	}

	return prof, nil
}
