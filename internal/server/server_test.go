package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/printdesk/printdesk/frontend"
	"github.com/printdesk/printdesk/internal/config"
	"github.com/printdesk/printdesk/internal/storage"
	"github.com/printdesk/printdesk/internal/vnc"
)

type fakePrinter struct {
	mu     sync.Mutex
	prints []string
	opens  []string
	err    error
}

func (p *fakePrinter) Print(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prints = append(p.prints, path)
	return p.err
}

func (p *fakePrinter) Open(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opens = append(p.opens, path)
	return p.err
}

type testEnv struct {
	srv     *Server
	store   *storage.DiskStore
	printer *fakePrinter
	cfg     *config.Config
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.New()
	cfg.Storage.MaxUploadSize = 1024
	for _, m := range mutate {
		m(cfg)
	}

	store, err := storage.NewDiskStore(t.TempDir(), cfg.Storage.MaxUploadSize)
	if err != nil {
		t.Fatal(err)
	}
	printer := &fakePrinter{}
	srv, err := New(Options{
		Config:      cfg,
		Store:       store,
		Printer:     printer,
		Connections: vnc.NewStore(filepath.Join(t.TempDir(), "config", "vnc_connections.json")),
		Frontend:    frontend.FS(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(srv.Proxy().Close)
	return &testEnv{srv: srv, store: store, printer: printer, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) json(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, target, strings.NewReader(body), "application/json")
}

func (e *testEnv) upload(t *testing.T, field, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, content)
	mw.Close()
	return e.do(t, http.MethodPost, "/files", &buf, mw.FormDataContentType())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q is not JSON: %v", rec.Body.String(), err)
	}
	return body
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Code != code || body.Error == "" {
		t.Errorf("error body = %+v, want code %s", body, code)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() with no options should fail")
	}
}

func TestShell(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path     string
		status   int
		title    string
		contains []string
	}{
		{"/", http.StatusOK, "文件管理", []string{
			`<link rel="modulepreload" crossorigin href="/assets/FileList-D1kR9tYh.js">`,
			`<link rel="stylesheet" crossorigin href="/assets/FileList-Bq3mL0Xe.css">`,
		}},
		{"/vnc", http.StatusOK, "VNC远程控制", []string{
			`href="/assets/VncView-Ch6vN2Jp.js"`,
			`href="/assets/rfb-Ae5tZ8Ku.js"`,
		}},
		{"/vnc/", http.StatusOK, "VNC远程控制", nil},
		{"/no/such/page", http.StatusNotFound, "页面未找到", nil},
		{"/100%25off", http.StatusNotFound, "页面未找到", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			page := rec.Body.String()
			if !strings.Contains(page, "<title>"+tt.title+"</title>") {
				t.Errorf("page title missing %q:\n%s", tt.title, page)
			}
			for _, want := range tt.contains {
				if !strings.Contains(page, want) {
					t.Errorf("page missing %s", want)
				}
			}
			if n := strings.Count(page, "/assets/index-B7xQ2mZc.js"); n != 1 {
				t.Errorf("entry script referenced %d times, want 1", n)
			}
		})
	}
}

func TestShell_LoadsComponentOnce(t *testing.T) {
	env := newTestEnv(t)
	if env.srv.Router().Loaded("vnc") {
		t.Fatal("vnc view loaded before first navigation")
	}
	env.do(t, http.MethodGet, "/vnc", nil, "")
	if !env.srv.Router().Loaded("vnc") {
		t.Error("vnc view not loaded after navigation")
	}
	if env.srv.Router().Loaded("files") {
		t.Error("files view loaded without navigation")
	}
}

func TestAPINotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/nothing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAssets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/assets/index-B7xQ2mZc.js", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("Cache-Control = %q, want immutable", cc)
	}
	if !strings.Contains(rec.Body.String(), "文件管理") {
		t.Error("unexpected asset body")
	}

	for _, p := range []string{"/assets/missing.js", "/assets/", "/assets/..%2f.vite%2fmanifest.json"} {
		if rec := env.do(t, http.MethodGet, p, nil, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", p, rec.Code)
		}
	}
}

func TestFiles_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.upload(t, "file", "报告.pdf", "%PDF-1.4")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var up messageBody
	json.Unmarshal(rec.Body.Bytes(), &up)
	if up.Message != "File uploaded successfully" || up.Filename != "报告.pdf" {
		t.Errorf("upload body = %+v", up)
	}

	rec = env.do(t, http.MethodGet, "/files", nil, "")
	var list fileList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if len(list.Files) != 1 || list.Files[0].Filename != "报告.pdf" || list.Files[0].Size != 8 {
		t.Fatalf("list = %+v", list)
	}
	if _, err := time.ParseInLocation(storage.TimeFormat, list.Files[0].UploadTime, time.Local); err != nil {
		t.Errorf("upload_time %q: %v", list.Files[0].UploadTime, err)
	}

	rec = env.do(t, http.MethodGet, "/files/%E6%8A%A5%E5%91%8A.pdf", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "%PDF-1.4" {
		t.Fatalf("download = %d %q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rec = env.do(t, http.MethodDelete, "/files/%E6%8A%A5%E5%91%8A.pdf", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	expectError(t, env.do(t, http.MethodDelete, "/files/%E6%8A%A5%E5%91%8A.pdf", nil, ""), http.StatusNotFound, "E301")
	expectError(t, env.do(t, http.MethodGet, "/files/missing.pdf", nil, ""), http.StatusNotFound, "E301")
}

func TestFiles_PercentInName(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"100%.pdf", "a%41.pdf", "aA.pdf"} {
		if rec := env.upload(t, "file", name, name); rec.Code != http.StatusOK {
			t.Fatalf("upload %q status = %d: %s", name, rec.Code, rec.Body.String())
		}
	}

	tests := []struct {
		target string
		want   string
	}{
		{"/files/100%25.pdf", "100%.pdf"},
		{"/files/a%2541.pdf", "a%41.pdf"},
		{"/files/aA.pdf", "aA.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, nil, "")
			if rec.Code != http.StatusOK || rec.Body.String() != tt.want {
				t.Fatalf("download = %d %q, want 200 %q", rec.Code, rec.Body.String(), tt.want)
			}

			rec = env.do(t, http.MethodDelete, tt.target, nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
			}
			var body messageBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Message != "File deleted successfully" || body.Filename != tt.want {
				t.Errorf("delete body = %+v", body)
			}
			if _, err := env.store.Stat(context.Background(), tt.want); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Stat(%q) after delete = %v", tt.want, err)
			}
		})
	}
}

func TestFiles_EmptyList(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/files", nil, "")
	if strings.TrimSpace(rec.Body.String()) != `{"files":[]}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestFiles_UploadErrors(t *testing.T) {
	env := newTestEnv(t)

	expectError(t, env.upload(t, "document", "a.pdf", "x"), http.StatusBadRequest, "E303")
	expectError(t, env.upload(t, "file", "big.pdf", strings.Repeat("x", 2048)), http.StatusRequestEntityTooLarge, "E304")
	expectError(t, env.do(t, http.MethodDelete, "/files/..", nil, ""), http.StatusBadRequest, "E302")
}

func TestFiles_UploadRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.RateLimit.UploadsPerMinute = 1
		c.RateLimit.Burst = 1
	})

	if rec := env.upload(t, "file", "a.pdf", "x"); rec.Code != http.StatusOK {
		t.Fatalf("first upload status = %d", rec.Code)
	}
	expectError(t, env.upload(t, "file", "b.pdf", "x"), http.StatusTooManyRequests, "E306")
}

func TestPrint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.Save(ctx, "doc.pdf", strings.NewReader("x"))
	env.store.Save(ctx, "notes.txt", strings.NewReader("x"))
	env.store.Save(ctx, "sheet.xlsx", strings.NewReader("x"))

	expectError(t, env.json(t, http.MethodPost, "/print", `{not json`), http.StatusBadRequest, "E404")
	expectError(t, env.json(t, http.MethodPost, "/print", `{"filename":""}`), http.StatusBadRequest, "E403")
	expectError(t, env.json(t, http.MethodPost, "/print", `{"filename":"missing.pdf"}`), http.StatusNotFound, "E301")
	expectError(t, env.json(t, http.MethodPost, "/print", `{"filename":"../doc.pdf"}`), http.StatusBadRequest, "E302")
	expectError(t, env.json(t, http.MethodPost, "/print", `{"filename":"notes.txt"}`), http.StatusBadRequest, "E401")
	expectError(t, env.json(t, http.MethodPost, "/print", `{"filename":"sheet.xlsx"}`), http.StatusBadRequest, "E401")

	rec := env.json(t, http.MethodPost, "/print", `{"filename":"doc.pdf"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "打印成功") {
		t.Fatalf("print = %d %s", rec.Code, rec.Body.String())
	}
	if len(env.printer.prints) != 1 || filepath.Base(env.printer.prints[0]) != "doc.pdf" || !filepath.IsAbs(env.printer.prints[0]) {
		t.Errorf("printed %v", env.printer.prints)
	}

	env.printer.err = errors.New("lp: no default destination")
	expectError(t, env.json(t, http.MethodPost, "/print", `{"filename":"doc.pdf"}`), http.StatusInternalServerError, "E402")
}

func TestPreopen(t *testing.T) {
	env := newTestEnv(t)
	env.store.Save(context.Background(), "sheet.xlsx", strings.NewReader("x"))

	rec := env.json(t, http.MethodPost, "/preopen", `{"filename":"sheet.xlsx"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "成功") {
		t.Fatalf("preopen = %d %s", rec.Code, rec.Body.String())
	}
	if len(env.printer.opens) != 1 {
		t.Errorf("opens = %v", env.printer.opens)
	}

	env.printer.err = errors.New("xdg-open: no method available")
	expectError(t, env.json(t, http.MethodPost, "/preopen", `{"filename":"sheet.xlsx"}`), http.StatusInternalServerError, "E405")
}

func TestVNCConnections(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/vnc/connections", nil, "")
	var conns []vnc.Connection
	if err := json.Unmarshal(rec.Body.Bytes(), &conns); err != nil || len(conns) != 1 || conns[0].Name != vnc.DefaultName {
		t.Fatalf("default list = %s (%v)", rec.Body.String(), err)
	}

	rec = env.json(t, http.MethodPost, "/api/vnc/connections", `{"name":"office","url":"10.0.0.9:5901","password":"pw"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"office"`) {
		t.Fatalf("add = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.json(t, http.MethodPut, "/api/vnc/connections/1", `{"name":"office-2","url":"10.0.0.9:5902"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rec.Code, rec.Body.String())
	}

	expectError(t, env.json(t, http.MethodPut, "/api/vnc/connections/abc", `{"name":"x","url":"y:1"}`), http.StatusBadRequest, "E501")
	expectError(t, env.json(t, http.MethodPut, "/api/vnc/connections/7", `{"name":"x","url":"y:1"}`), http.StatusBadRequest, "E501")
	expectError(t, env.json(t, http.MethodPost, "/api/vnc/connections", `{"name":"","url":"y:1"}`), http.StatusBadRequest, "E504")
	expectError(t, env.json(t, http.MethodPost, "/api/vnc/connections", `[`), http.StatusBadRequest, "E404")
	expectError(t, env.do(t, http.MethodDelete, "/api/vnc/connections/-1", nil, ""), http.StatusBadRequest, "E501")

	rec = env.do(t, http.MethodDelete, "/api/vnc/connections/0", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/vnc/connections", nil, "")
	json.Unmarshal(rec.Body.Bytes(), &conns)
	if len(conns) != 1 || conns[0].Name != "office-2" {
		t.Errorf("final list = %+v", conns)
	}
}

func TestRoutesAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/routes", nil, "")
	var routes []routeEntry
	json.Unmarshal(rec.Body.Bytes(), &routes)
	want := []routeEntry{{"/", "files", "文件管理"}, {"/vnc", "vnc", "VNC远程控制"}}
	if len(routes) != 2 || routes[0] != want[0] || routes[1] != want[1] {
		t.Errorf("routes = %+v", routes)
	}

	rec = env.do(t, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/files", nil, "")

	rec := env.do(t, http.MethodGet, "/metrics", nil, "")
	body := rec.Body.String()
	for _, want := range []string{
		`printdesk_http_requests_total{method="GET",route="/files`,
		"printdesk_websockify_active_sessions 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}

	off := newTestEnv(t, func(c *config.Config) { c.Server.Metrics = false })
	if rec := off.do(t, http.MethodGet, "/metrics", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("disabled /metrics status = %d", rec.Code)
	}
}

func TestWebsockify_PlainRequest(t *testing.T) {
	env := newTestEnv(t)
	expectError(t, env.do(t, http.MethodGet, "/websockify", nil, ""), http.StatusBadRequest, "E604")
}

func TestWebsockify_UpgradeThroughMiddleware(t *testing.T) {
	vncLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer vncLn.Close()
	go func() {
		conn, err := vncLn.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("RFB 003.008\n"))
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		conn.Write(buf[:n])
	}()

	env := newTestEnv(t, func(c *config.Config) { c.VNC.DefaultTarget = vncLn.Addr().String() })
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	d := websocket.Dialer{Subprotocols: []string{"binary"}, HandshakeTimeout: 2 * time.Second}
	ws, _, err := d.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/websockify", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()
	if got := ws.Subprotocol(); got != "binary" {
		t.Errorf("Subprotocol() = %q, want binary", got)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if mt != websocket.BinaryMessage || string(data) != "RFB 003.008\n" {
		t.Errorf("banner = %d %q", mt, data)
	}

	if err := ws.WriteMessage(websocket.BinaryMessage, []byte("RFB 003.008\n")); err != nil {
		t.Fatal(err)
	}
	if _, data, err = ws.ReadMessage(); err != nil || string(data) != "RFB 003.008\n" {
		t.Errorf("echo = %q, %v", data, err)
	}
}

func TestServe_Shutdown(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Server.ShutdownTimeout = "1s" })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
