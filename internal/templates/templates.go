package templates

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/printdesk/printdesk/internal/errors"
)

// Plugin is a bundler plugin as it appears in the generated files.
type Plugin struct {
	// Ident is the identifier the plugin is imported as.
	Ident string

	// Module is the import path of the plugin.
	Module string

	// Version is the npm version range for package.json.
	Version string
}

// Alias maps an import prefix to a directory relative to the project.
type Alias struct {
	Prefix string
	Dir    string
}

// Route is one entry of the front-end route table.
type Route struct {
	Path  string
	Name  string
	Title string

	// Source is the view file, e.g. "src/views/FileList.vue".
	Source string
}

// Import returns the view's import path relative to src/router.
func (r Route) Import() string {
	return "../" + strings.TrimPrefix(r.Source, "src/")
}

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// Title is the default document title.
	Title string

	// Plugins are the bundler plugins in application order.
	Plugins []Plugin

	// Target is the ECMAScript output level.
	Target string

	// Minify enables minification.
	Minify bool

	// OutDir is the bundler output directory.
	OutDir string

	// Aliases are the import aliases.
	Aliases []Alias

	// Routes is the route table in match order.
	Routes []Route

	// NotFound is the route shown for unmatched paths. Its Path is ignored.
	NotFound Route
}

// Template represents a set of generated files.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents.
	Files map[string]string
}

var templates = map[string]*Template{
	"vite":     viteTemplate(),
	"frontend": frontendTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.Newf(errors.CategoryBuild, "template %q not found", name).
			WithSuggestion("Available templates: vite, frontend")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes a single file of the template and writes it to w.
func (t *Template) Render(w io.Writer, relPath string, cfg Config) error {
	content, ok := t.Files[relPath]
	if !ok {
		return errors.Newf(errors.CategoryBuild, "template %s has no file %s", t.Name, relPath)
	}
	tmpl, err := template.New(relPath).Parse(content)
	if err != nil {
		return errors.Newf(errors.CategoryBuild, "invalid template %s: %v", relPath, err)
	}
	if err := tmpl.Execute(w, cfg); err != nil {
		return errors.Newf(errors.CategoryBuild, "template execute error %s: %v", relPath, err)
	}
	return nil
}

// Create generates every file of the template under dir.
// Existing files are overwritten.
func (t *Template) Create(dir string, cfg Config) error {
	for relPath := range t.Files {
		var buf bytes.Buffer
		if err := t.Render(&buf, relPath, cfg); err != nil {
			return err
		}

		fullPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}

		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}

	return nil
}

// ViteConfigFile is the file name of the bundler configuration.
const ViteConfigFile = "vite.config.ts"

const viteConfig = `// Generated by printdesk build. Edit printdesk.json instead.
import { fileURLToPath, URL } from 'node:url'
import { defineConfig } from 'vite'
{{- range .Plugins}}
import {{.Ident}} from '{{.Module}}'
{{- end}}

export default defineConfig({
  plugins: [{{range $i, $p := .Plugins}}{{if $i}}, {{end}}{{$p.Ident}}(){{end}}],
  build: {
    target: '{{.Target}}',
    minify: {{.Minify}},
    outDir: '{{.OutDir}}',
    manifest: true,
  },
  resolve: {
    alias: {
{{- range .Aliases}}
      '{{.Prefix}}': fileURLToPath(new URL('./{{.Dir}}', import.meta.url)),
{{- end}}
    },
  },
})
`

func viteTemplate() *Template {
	return &Template{
		Name:        "vite",
		Description: "Bundler configuration",
		Files: map[string]string{
			ViteConfigFile: viteConfig,
		},
	}
}

func frontendTemplate() *Template {
	return &Template{
		Name:        "frontend",
		Description: "Front-end project skeleton",
		Files: map[string]string{
			ViteConfigFile: viteConfig,
			"package.json": `{
  "name": "{{.ProjectName}}",
  "private": true,
  "type": "module",
  "scripts": {
    "build": "vite build"
  },
  "dependencies": {
    "@novnc/novnc": "^1.4.0",
    "vue": "^3.4.0",
    "vue-router": "^4.3.0"
  },
  "devDependencies": {
{{- range .Plugins}}
    "{{.Module}}": "{{.Version}}",
{{- end}}
    "vite": "^5.2.0"
  }
}
`,
			"index.html": `<!DOCTYPE html>
<html lang="zh-CN">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>{{.Title}}</title>
  </head>
  <body>
    <div id="app"></div>
    <script type="module" src="/src/main.ts"></script>
  </body>
</html>
`,
			"src/main.ts":            mainTS,
			"src/App.vue":            appVue,
			"src/vite-env.d.ts":      viteEnv,
			"src/router/index.ts":    routerTS,
			"src/views/FileList.vue": fileListVue,
			"src/views/VncView.vue":  vncViewVue,
			"src/views/NotFound.vue": notFoundVue,
		},
	}
}

const mainTS = `import { createApp } from 'vue'
import App from './App.vue'
import router from './router'

createApp(App).use(router).mount('#app')
`

const appVue = `<template>
  <router-view />
</template>
`

const viteEnv = `/// <reference types="vite/client" />

declare module '*.vue' {
  import type { DefineComponent } from 'vue'
  const component: DefineComponent<{}, {}, any>
  export default component
}

declare module '@novnc/novnc/lib/rfb' {
  export default class RFB {
    constructor(
      container: HTMLElement,
      url: string,
      options?: {
        credentials?: { password: string }
        shared?: boolean
        clipViewport?: boolean
        scaleViewport?: boolean
        resizeSession?: boolean
        encrypt?: boolean
      }
    )

    disconnect(): void
    setViewportScale(scale: number): void
    addEventListener(event: string, callback: (e: any) => void): void
  }
}
`

const routerTS = `// Generated by printdesk init from the server's route table.
import { createRouter, createWebHistory } from 'vue-router'

const router = createRouter({
  history: createWebHistory(),
  routes: [
{{- range .Routes}}
    {
      path: '{{.Path}}',
      name: '{{.Name}}',
      component: () => import('{{.Import}}'),
      meta: { title: '{{.Title}}' },
    },
{{- end}}
    {
      path: '/:pathMatch(.*)*',
      name: '{{.NotFound.Name}}',
      component: () => import('{{.NotFound.Import}}'),
      meta: { title: '{{.NotFound.Title}}' },
    },
  ],
})

router.afterEach((to) => {
  if (typeof to.meta.title === 'string') {
    document.title = to.meta.title
  }
})

export default router
`

const fileListVue = `<script setup lang="ts">
import { onMounted, ref } from 'vue'

interface FileEntry {
  filename: string
  size: number
  upload_time: string
}

const files = ref<FileEntry[]>([])

async function refresh() {
  const res = await fetch('/files')
  files.value = (await res.json()).files
}

async function print(filename: string) {
  await fetch('/print', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({ filename }),
  })
}

onMounted(refresh)
</script>

<template>
  <ul>
    <li v-for="f in files" :key="f.filename">
      <span v-text="f.filename"></span>
      <button @click="print(f.filename)">打印</button>
    </li>
  </ul>
</template>
`

const vncViewVue = `<script setup lang="ts">
import { onBeforeUnmount, onMounted, ref } from 'vue'
import RFB from '@novnc/novnc/lib/rfb'

const screen = ref<HTMLElement | null>(null)
let rfb: RFB | null = null

onMounted(() => {
  const scheme = location.protocol === 'https:' ? 'wss' : 'ws'
  rfb = new RFB(screen.value!, ` + "`${scheme}://${location.host}/websockify`" + `, {
    shared: true,
    scaleViewport: true,
  })
})

onBeforeUnmount(() => {
  rfb?.disconnect()
  rfb = null
})
</script>

<template>
  <div ref="screen" class="vnc-screen"></div>
</template>
`

const notFoundVue = `<template>
  <p>页面未找到</p>
  <router-link to="/">返回文件管理</router-link>
</template>
`
