package ui

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var dist embed.FS

// Pages returns the dashboard bundle rooted at dist/: the HTML pages at the
// top level and static files under assets/.
func Pages() fs.FS {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		// dist is embedded at build time; a failure here is a build defect.
		panic(err)
	}
	return sub
}
