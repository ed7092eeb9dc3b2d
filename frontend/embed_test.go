package frontend

import (
	"io/fs"
	"testing"

	"github.com/printdesk/printdesk/pkg/assets"
	"github.com/printdesk/printdesk/pkg/router"
)

func TestFS_ManifestMatchesFiles(t *testing.T) {
	fsys := FS()
	if _, err := fs.Stat(fsys, "index.html"); err != nil {
		t.Fatalf("index.html missing: %v", err)
	}

	m, err := assets.LoadFS(fsys, assets.ManifestPath)
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	for _, src := range []string{router.FileListView, router.VncView} {
		b, ok := m.Bundle(src)
		if !ok {
			t.Fatalf("view %s not in manifest", src)
		}
		files := append([]string{b.Script}, b.Imports...)
		files = append(files, b.CSS...)
		for _, f := range files {
			if _, err := fs.Stat(fsys, f); err != nil {
				t.Errorf("%s: emitted file %s missing: %v", src, f, err)
			}
		}
	}
}
