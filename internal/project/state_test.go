// Package project tests the inheritance chain resolution.
// Related: internal/project/state.go
// Tags: project, hierarchy, inheritance

package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupIn(configs map[Name]*Config) LookupFunc {
	return func(name Name) (*Config, bool) {
		cfg, ok := configs[name]
		return cfg, ok
	}
}

func parentNames(s *State) []Name {
	var names []Name
	for _, p := range s.Parents() {
		names = append(names, p.Name())
	}
	return names
}

func TestNewChain(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		configs map[Name]*Config
		name    Name
		wantOK  bool
		want    []Name
	}{
		"root has no parents": {
			configs: map[Name]*Config{AllProjects: {}},
			name:    AllProjects,
			wantOK:  true,
			want:    nil,
		},
		"implicit root parent": {
			configs: map[Name]*Config{AllProjects: {}, "a": {}},
			name:    "a",
			wantOK:  true,
			want:    []Name{AllProjects},
		},
		"nearest first": {
			configs: map[Name]*Config{
				AllProjects: {},
				"a":         {},
				"b":         {Parent: "a"},
				"c":         {Parent: "b"},
			},
			name:   "c",
			wantOK: true,
			want:   []Name{"b", "a", AllProjects},
		},
		"cycle terminates": {
			configs: map[Name]*Config{
				"a": {Parent: "b"},
				"b": {Parent: "a"},
			},
			name:   "a",
			wantOK: true,
			want:   []Name{"b"},
		},
		"dangling parent stops walk": {
			configs: map[Name]*Config{"a": {Parent: "gone"}},
			name:    "a",
			wantOK:  true,
			want:    nil,
		},
		"unknown project": {
			configs: map[Name]*Config{},
			name:    "missing",
			wantOK:  false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			state, ok := NewChain(tt.name, AllProjects, lookupIn(tt.configs))
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.name, state.Name())
			assert.Equal(t, tt.want, parentNames(state))
		})
	}
}

func TestPluginConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{Plugins: map[string]PluginConfig{
		"download-commands": {"checkout": "git fetch", "cherry-pick": ""},
	}}
	state := NewState("p", cfg)

	pc := state.PluginConfig("download-commands")
	assert.Equal(t, []string{"checkout", "cherry-pick"}, pc.Names())
	assert.Equal(t, "git fetch", pc.String("checkout"))
	assert.Equal(t, "", pc.String("missing"))

	assert.Empty(t, state.PluginConfig("other"))
	assert.NotNil(t, NewState("q", nil).PluginConfig("x"))
}

func TestIsZeroRevision(t *testing.T) {
	t.Parallel()

	assert.True(t, IsZeroRevision(ZeroRevision))
	assert.True(t, IsZeroRevision(""))
	assert.False(t, IsZeroRevision("a94a8fe5ccb19ba61c4c0873d391e987982fbbd3"))
}
