package router

import (
	"errors"
	"net/url"
	"strings"
)

// Request path errors.
var (
	ErrInvalidPath     = errors.New("router: invalid path")
	ErrPathEscapesRoot = errors.New("router: path escapes root")
)

// Canonicalize normalises an escaped request path: the query and fragment are dropped,
// repeated slashes collapse, "." segments vanish, ".." pops a segment and a
// trailing slash is removed (except for "/"). Backslashes, NUL bytes, bad
// percent-escapes and ".." above the root are rejected.
func Canonicalize(input string) (string, error) {
	p, _, _ := strings.Cut(input, "?")
	p, _, _ = strings.Cut(p, "#")
	if p == "" {
		return "/", nil
	}
	if strings.ContainsAny(p, "\\\x00") || strings.Contains(strings.ToUpper(p), "%00") {
		return "", ErrInvalidPath
	}
	if strings.Contains(p, "%") {
		if _, err := url.PathUnescape(p); err != nil {
			return "", ErrInvalidPath
		}
	}

	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return "", ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

type segmentKind int

const (
	segStatic segmentKind = iota
	segParam
	segCatchAll
)

type segment struct {
	kind  segmentKind
	value string // literal text or parameter name
}

// pattern is a compiled route path.
type pattern struct {
	raw      string
	segments []segment
}

// compile parses a route path. Paths are canonicalised first so "/vnc/" and
// "/vnc" compile to the same pattern.
func compile(raw string) (pattern, error) {
	if raw == "" {
		return pattern{}, ErrEmptyPath
	}
	if !strings.HasPrefix(raw, "/") {
		return pattern{}, routeError(ErrRelativePath, raw)
	}
	canon, err := Canonicalize(raw)
	if err != nil {
		return pattern{}, routeError(ErrBadPattern, raw)
	}

	p := pattern{raw: canon}
	if canon == "/" {
		return p, nil
	}
	parts := strings.Split(strings.TrimPrefix(canon, "/"), "/")
	names := make(map[string]bool)
	for i, part := range parts {
		s := segment{kind: segStatic, value: part}
		switch part[0] {
		case ':':
			s = segment{kind: segParam, value: part[1:]}
		case '*':
			if i != len(parts)-1 {
				return pattern{}, routeError(ErrBadPattern, raw)
			}
			s = segment{kind: segCatchAll, value: part[1:]}
		}
		if s.kind != segStatic {
			if s.value == "" || names[s.value] {
				return pattern{}, routeError(ErrBadPattern, raw)
			}
			names[s.value] = true
		}
		p.segments = append(p.segments, s)
	}
	return p, nil
}

// match reports whether the canonical path matches and extracts parameters.
func (p pattern) match(path string) (map[string]string, bool) {
	if path == "/" {
		if len(p.segments) == 0 {
			return nil, true
		}
		if len(p.segments) == 1 && p.segments[0].kind == segCatchAll {
			return map[string]string{p.segments[0].value: ""}, true
		}
		return nil, false
	}
	if len(p.segments) == 0 {
		return nil, false
	}

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	var params map[string]string
	for i, s := range p.segments {
		if s.kind == segCatchAll {
			rest, err := url.PathUnescape(strings.Join(parts[i:], "/"))
			if err != nil {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[s.value] = rest
			return params, true
		}
		if i >= len(parts) {
			return nil, false
		}
		switch s.kind {
		case segStatic:
			if parts[i] != s.value {
				return nil, false
			}
		case segParam:
			v, err := url.PathUnescape(parts[i])
			if err != nil || strings.Contains(v, "/") {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[s.value] = v
		}
	}
	if len(parts) != len(p.segments) {
		return nil, false
	}
	return params, true
}

// key identifies patterns that match the same paths regardless of parameter
// names.
func (p pattern) key() string {
	if len(p.segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, s := range p.segments {
		sb.WriteByte('/')
		switch s.kind {
		case segStatic:
			sb.WriteString(s.value)
		case segParam:
			sb.WriteByte(':')
		case segCatchAll:
			sb.WriteByte('*')
		}
	}
	return sb.String()
}
