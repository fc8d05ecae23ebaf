// Package scheme provides the download schemes a project can be fetched over.
package scheme

import (
	"sort"
	"strings"

	"github.com/ariel-frischer/dlcmd/internal/config"
	"github.com/ariel-frischer/dlcmd/internal/download"
)

// Scheme names.
const (
	HTTP = "http"
	SSH  = "ssh"
	Git  = "git"
)

// URLScheme builds fetch URLs by appending the project name to a base URL.
type URLScheme struct {
	Name string
	Base string
}

var _ download.Scheme = URLScheme{}

// URL implements download.Scheme.
func (s URLScheme) URL(project string) string {
	return strings.TrimSuffix(s.Base, "/") + "/" + strings.TrimPrefix(project, "/")
}

// FromConfig returns the enabled schemes in name order.
func FromConfig(cfg config.Schemes) []URLScheme {
	bases := map[string]string{
		HTTP: cfg.HTTP,
		SSH:  cfg.SSH,
		Git:  cfg.Git,
	}

	var schemes []URLScheme
	for name, base := range bases {
		if base != "" {
			schemes = append(schemes, URLScheme{Name: name, Base: base})
		}
	}
	sort.Slice(schemes, func(i, j int) bool { return schemes[i].Name < schemes[j].Name })
	return schemes
}
