package config

import "time"

// GetDefaultConfigTemplate returns a fully commented config template
// that helps users understand all available options
func GetDefaultConfigTemplate() string {
	return `# dlcmd site configuration
# Environment variables override this file: DLCMD_CACHE_SIZE, DLCMD_SCHEMES__HTTP, ...

# Site layout
site_path: .                          # Directory holding git/<project>.git
plugin_name: download-commands        # [plugin "<name>"] section in project.config
config_ref: refs/meta/config          # Ref holding project.config
all_projects: All-Projects            # Root every project inherits from

# Sync settings
cache_size: 1024                      # Parsed project.config revisions kept in memory
queue_size: 256                       # Pending config updates before events are dropped
poll_interval: 2s                     # Ref rescan interval when file events are missed

# Logging
log_level: info                       # trace | debug | info | warn | error
log_format: text                      # text | json

# Metrics
metrics_addr: ""                      # Listen address for /metrics (empty = disabled)

# Download schemes (empty = disabled)
schemes:
  http: ""                            # e.g. https://review.example.com
  ssh: ""                             # e.g. ssh://review.example.com:29418
  git: ""                             # e.g. git://review.example.com
`
}

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"site_path":    ".",
		"plugin_name":  "download-commands",
		"config_ref":   "refs/meta/config",
		"all_projects": "All-Projects",
		// cache_size: revisions are immutable, so entries never go stale;
		// the size only bounds memory.
		"cache_size":    1024,
		"queue_size":    256,
		"log_level":     "info",
		"log_format":    "text",
		"metrics_addr":  "",
		"poll_interval": (2 * time.Second).String(),
		"schemes": map[string]interface{}{
			"http": "",
			"ssh":  "",
			"git":  "",
		},
	}
}
