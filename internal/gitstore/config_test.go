package gitstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input      string
		wantParent project.Name
		wantPlugin project.PluginConfig
	}{
		"empty file": {
			input:      "",
			wantPlugin: project.PluginConfig{},
		},
		"parent and commands": {
			input: `[access]
	inheritFrom = parent
[plugin "download-commands"]
	checkout = git fetch ${url} ${ref} && git checkout FETCH_HEAD
	cherry-pick = git fetch ${url} ${ref} && git cherry-pick FETCH_HEAD
`,
			wantParent: "parent",
			wantPlugin: project.PluginConfig{
				"checkout":    "git fetch ${url} ${ref} && git checkout FETCH_HEAD",
				"cherry-pick": "git fetch ${url} ${ref} && git cherry-pick FETCH_HEAD",
			},
		},
		"other plugins are ignored": {
			input: `[plugin "other"]
	checkout = nope
[plugin "download-commands"]
	pull = git pull ${url} ${ref}
`,
			wantPlugin: project.PluginConfig{"pull": "git pull ${url} ${ref}"},
		},
		"last value wins": {
			input: `[plugin "download-commands"]
	checkout = first
	checkout = second
`,
			wantPlugin: project.PluginConfig{"checkout": "second"},
		},
		"empty value": {
			input: `[plugin "download-commands"]
	checkout = ""
`,
			wantPlugin: project.PluginConfig{"checkout": ""},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := ParseConfig([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantParent, cfg.Parent)
			assert.Equal(t, tt.wantPlugin, cfg.PluginConfig("download-commands"))
		})
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseConfig([]byte("[plugin \"download-commands\"\n\tcheckout = x\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, project.ErrConfigInvalid)
}
