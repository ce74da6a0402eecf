// Package content embeds the stock view templates and feed data so the
// client and the content server work without a content directory.
package content

import (
	"embed"
	"io/fs"
	"path"
	"sync"

	"github.com/spf13/afero"
)

//go:embed views/*.txt data/*.json
var files embed.FS

var (
	memOnce sync.Once
	mem     afero.Fs
)

// FS returns the embedded content as a read-only filesystem:
// /views/home.txt, /data/home.json and so on. The files are copied into
// a memory filesystem once so rooted paths resolve.
func FS() afero.Fs {
	memOnce.Do(func() {
		m := afero.NewMemMapFs()
		_ = fs.WalkDir(files, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, err := fs.ReadFile(files, p)
			if err != nil {
				return err
			}
			return afero.WriteFile(m, path.Join("/", p), data, 0o644)
		})
		mem = afero.NewReadOnlyFs(m)
	})
	return mem
}

// Dir returns content rooted at dir on the OS filesystem, or the embedded
// content when dir is empty.
func Dir(dir string) afero.Fs {
	if dir == "" {
		return FS()
	}
	return afero.NewBasePathFs(afero.NewOsFs(), dir)
}

// Views lists the embedded view ids.
func Views() []string {
	entries, _ := fs.ReadDir(files, "views")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		out = append(out, name[:len(name)-len(".txt")])
	}
	return out
}
