package templates

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{
		ProjectName: "printdesk-frontend",
		Title:       "文件管理",
		Plugins: []Plugin{
			{Ident: "vue", Module: "@vitejs/plugin-vue", Version: "^5.0.0"},
			{Ident: "topLevelAwait", Module: "vite-plugin-top-level-await", Version: "^1.4.0"},
		},
		Target:  "esnext",
		Minify:  false,
		OutDir:  "dist",
		Aliases: []Alias{{Prefix: "@", Dir: "src"}},
		Routes: []Route{
			{Path: "/", Name: "files", Title: "文件管理", Source: "src/views/FileList.vue"},
			{Path: "/vnc", Name: "vnc", Title: "VNC远程控制", Source: "src/views/VncView.vue"},
		},
		NotFound: Route{Name: "not-found", Title: "页面未找到", Source: "src/views/NotFound.vue"},
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"vite", false},
		{"frontend", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Get(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tmpl.Name != tt.name {
				t.Errorf("Name = %q, want %q", tmpl.Name, tt.name)
			}
		})
	}
}

func TestList(t *testing.T) {
	names := List()
	if strings.Join(names, ",") != "frontend,vite" {
		t.Errorf("List() = %v", names)
	}
}

func TestRenderViteConfig(t *testing.T) {
	tmpl, err := Get("vite")
	if err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	if err := tmpl.Render(&sb, ViteConfigFile, testConfig()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"import vue from '@vitejs/plugin-vue'",
		"import topLevelAwait from 'vite-plugin-top-level-await'",
		"plugins: [vue(), topLevelAwait()],",
		"target: 'esnext',",
		"minify: false,",
		"manifest: true,",
		"'@': fileURLToPath(new URL('./src', import.meta.url)),",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("vite.config.ts missing %q\n%s", want, out)
		}
	}

	// Plugin order is preserved.
	if strings.Index(out, "vue()") > strings.Index(out, "topLevelAwait()") {
		t.Error("plugin order not preserved")
	}
}

func TestRenderMissingFile(t *testing.T) {
	tmpl, _ := Get("vite")
	var sb strings.Builder
	if err := tmpl.Render(&sb, "index.html", testConfig()); err == nil {
		t.Error("expected error for unknown file")
	}
}

func TestRouteImport(t *testing.T) {
	r := Route{Source: "src/views/VncView.vue"}
	if got := r.Import(); got != "../views/VncView.vue" {
		t.Errorf("Import() = %q", got)
	}
}

func TestCreateFrontend(t *testing.T) {
	tmpl, err := Get("frontend")
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := tmpl.Create(dir, testConfig()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, name := range []string{
		"package.json", "index.html", ViteConfigFile,
		"src/main.ts", "src/App.vue", "src/vite-env.d.ts", "src/router/index.ts",
		"src/views/FileList.vue", "src/views/VncView.vue", "src/views/NotFound.vue",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}

	routes, err := os.ReadFile(filepath.Join(dir, "src/router/index.ts"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"path: '/',",
		"name: 'files',",
		"component: () => import('../views/FileList.vue'),",
		"meta: { title: '文件管理' },",
		"path: '/vnc',",
		"component: () => import('../views/VncView.vue'),",
		"name: 'not-found',",
		"component: () => import('../views/NotFound.vue'),",
	} {
		if !strings.Contains(string(routes), want) {
			t.Errorf("router/index.ts missing %q:\n%s", want, routes)
		}
	}
	if strings.Index(string(routes), "'/vnc'") < strings.Index(string(routes), "'/'") {
		t.Error("router/index.ts routes out of order")
	}

	env, _ := os.ReadFile(filepath.Join(dir, "src/vite-env.d.ts"))
	if !strings.Contains(string(env), "setViewportScale(scale: number): void") {
		t.Errorf("vite-env.d.ts missing RFB declaration:\n%s", env)
	}

	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		t.Fatal(err)
	}
	var pkg struct {
		Name            string            `json:"name"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		t.Fatalf("package.json is not valid JSON: %v\n%s", err, data)
	}
	if pkg.Name != "printdesk-frontend" {
		t.Errorf("name = %q", pkg.Name)
	}
	if pkg.DevDependencies["@vitejs/plugin-vue"] != "^5.0.0" {
		t.Errorf("devDependencies = %v", pkg.DevDependencies)
	}

	html, _ := os.ReadFile(filepath.Join(dir, "index.html"))
	if !strings.Contains(string(html), "<title>文件管理</title>") {
		t.Errorf("index.html title missing:\n%s", html)
	}
}
