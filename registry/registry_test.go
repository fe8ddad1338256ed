package registry

import (
	"time"

	"github.com/kbukum/flowtorch/plugin"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testPlugin builds a plugin whose fragment names its own version.
func testPlugin(ns, slug, version string, created time.Time) *plugin.Func {
	return &plugin.Func{
		Def: &plugin.Definition{
			Slug:      slug,
			Name:      slug,
			Namespace: ns,
			Version:   version,
			CreatedAt: created,
		},
		Gen: func(plugin.Settings, []string, *plugin.Context) (string, error) {
			return slug + "@" + version, nil
		},
	}
}

func versionOf(p plugin.Plugin) string {
	return p.Definition().Version
}
