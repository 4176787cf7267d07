// Package webassets embeds the page templates and static files.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates static
var embedded embed.FS

// TemplatesFS holds layout.html plus one file per page.
func TemplatesFS() fs.FS {
	return mustSub("templates")
}

// StaticFS is served under /assets/.
func StaticFS() fs.FS {
	return mustSub("static")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return sub
}
