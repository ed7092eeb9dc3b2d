package server

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"io/fs"
	"regexp"
	"strings"

	"github.com/printdesk/printdesk/pkg/router"
)

var titleTag = regexp.MustCompile(`(?is)<title>.*?</title>`)

// Shell renders the front-end's index.html for a resolved route.
type Shell struct {
	page string
}

// NewShell reads index.html from fsys.
func NewShell(fsys fs.FS) (*Shell, error) {
	data, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		return nil, fmt.Errorf("read shell: %w", err)
	}
	page := string(data)
	if !strings.Contains(strings.ToLower(page), "</head>") {
		return nil, fmt.Errorf("read shell: index.html has no </head>")
	}
	return &Shell{page: page}, nil
}

// Render writes the page with the route's title, plus modulepreload and
// stylesheet links for its component. Links already in the page are not
// repeated.
func (s *Shell) Render(w io.Writer, res *router.Resolution) error {
	page := s.page
	title := "<title>" + html.EscapeString(res.Title) + "</title>"
	if titleTag.MatchString(page) {
		page = titleTag.ReplaceAllLiteralString(page, title)
	} else {
		page = insertHead(page, "    "+title+"\n")
	}

	if c := res.Component; c != nil {
		var tags bytes.Buffer
		seen := make(map[string]bool)
		link := func(rel, href string) {
			if href == "" || seen[href] || strings.Contains(page, `"`+href+`"`) {
				return
			}
			seen[href] = true
			fmt.Fprintf(&tags, "    <link rel=\"%s\" crossorigin href=\"%s\">\n", rel, html.EscapeString(href))
		}
		link("modulepreload", c.Script)
		for _, imp := range c.Imports {
			link("modulepreload", imp)
		}
		for _, css := range c.CSS {
			link("stylesheet", css)
		}
		page = insertHead(page, tags.String())
	}

	_, err := io.WriteString(w, page)
	return err
}

// insertHead inserts markup on its own lines before the closing head tag.
func insertHead(page, markup string) string {
	if markup == "" {
		return page
	}
	i := strings.LastIndex(strings.ToLower(page), "</head>")
	if i < 0 {
		return page
	}
	if line := strings.LastIndex(page[:i], "\n") + 1; strings.TrimSpace(page[line:i]) == "" {
		i = line
	} else {
		markup = "\n" + markup
	}
	return page[:i] + markup + page[i:]
}
