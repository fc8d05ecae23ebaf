package gitstore

import (
	"bytes"
	"fmt"

	format "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

const (
	accessSection  = "access"
	inheritFromKey = "inheritFrom"
	pluginSection  = "plugin"
)

// decodeConfig parses project.config content in git-config syntax.
func decodeConfig(data []byte) (*format.Config, error) {
	raw := format.New()
	if err := format.NewDecoder(bytes.NewReader(data)).Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", project.ErrConfigInvalid, err)
	}
	return raw, nil
}

// ParseConfig parses project.config content into the parent project and the
// per-plugin sections. A key repeated within a section keeps its last value.
func ParseConfig(data []byte) (*project.Config, error) {
	raw, err := decodeConfig(data)
	if err != nil {
		return nil, err
	}
	return toProjectConfig(raw), nil
}

func toProjectConfig(raw *format.Config) *project.Config {
	cfg := &project.Config{Plugins: make(map[string]project.PluginConfig)}

	if raw.HasSection(accessSection) {
		cfg.Parent = project.Name(raw.Section(accessSection).Options.Get(inheritFromKey))
	}

	if raw.HasSection(pluginSection) {
		for _, sub := range raw.Section(pluginSection).Subsections {
			values := make(project.PluginConfig, len(sub.Options))
			for _, opt := range sub.Options {
				values[opt.Key] = opt.Value
			}
			cfg.Plugins[sub.Name] = values
		}
	}
	return cfg
}

func encodeConfig(raw *format.Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := format.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", project.ConfigFile, err)
	}
	return buf.Bytes(), nil
}
