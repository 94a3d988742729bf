// Package migrations embeds the PostgreSQL schema files.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

// Files holds every schema file, applied in lexical order.
//
//go:embed *.sql
var Files embed.FS

// Names lists the embedded schema files in apply order.
func Names() ([]string, error) {
	names, err := fs.Glob(Files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
