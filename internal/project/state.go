package project

// State is a snapshot of one project and its resolved inheritance chain.
type State struct {
	name    Name
	config  *Config
	parents []*State
}

// NewState returns a state for name with no parents. Use NewChain to resolve
// the inheritance chain.
func NewState(name Name, cfg *Config) *State {
	if cfg == nil {
		cfg = &Config{}
	}
	return &State{name: name, config: cfg}
}

// Name returns the project name.
func (s *State) Name() Name {
	return s.name
}

// Config returns the parsed project.config.
func (s *State) Config() *Config {
	return s.config
}

// PluginConfig returns the section of project.config owned by plugin.
func (s *State) PluginConfig(plugin string) PluginConfig {
	return s.config.PluginConfig(plugin)
}

// Parents returns the ancestors of the project, nearest first, ending with
// the root.
func (s *State) Parents() []*State {
	return s.parents
}

// LookupFunc loads the configuration of a project, reporting false when the
// project does not exist.
type LookupFunc func(name Name) (*Config, bool)

// NewChain builds the state of name and resolves its ancestors through
// lookup. A project naming no parent inherits from root. The walk stops at the
// first missing or already visited project, so cyclic or dangling
// inheritFrom values cannot loop.
func NewChain(name Name, root Name, lookup LookupFunc) (*State, bool) {
	cfg, ok := lookup(name)
	if !ok {
		return nil, false
	}

	state := NewState(name, cfg)
	visited := map[Name]bool{name: true}
	for parent := parentOf(name, cfg, root); parent != ""; {
		if visited[parent] {
			break
		}
		visited[parent] = true

		pcfg, ok := lookup(parent)
		if !ok {
			break
		}
		state.parents = append(state.parents, NewState(parent, pcfg))
		parent = parentOf(parent, pcfg, root)
	}
	return state, true
}

func parentOf(name Name, cfg *Config, root Name) Name {
	if name == root {
		return ""
	}
	if cfg != nil && cfg.Parent != "" {
		return cfg.Parent
	}
	return root
}
