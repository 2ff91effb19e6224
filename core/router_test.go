package core

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testSite struct {
	dataFile string
	handler  http.Handler
}

func setupSite(t *testing.T, records string, runtime RuntimeContext) *testSite {
	t.Helper()
	dir := t.TempDir()
	tmplDir := filepath.Join(dir, "templates")

	writeTempFile(t, tmplDir, "layout.html", `{{ define "layout" }}<html><title>{{ .PageTitle }}</title><body>{{ template "content" . }}</body></html>{{ end }}`)
	writeTempFile(t, tmplDir, "components/card.html", `{{ define "card" }}<li data-slug="{{ field . "url" }}">{{ field . "name" }}</li>{{ end }}`)
	writeTempFile(t, tmplDir, "index.html", "<!-- layout: layout.html -->\n{{ define \"content\" }}<h1>Welcome</h1>{{ end }}")
	writeTempFile(t, tmplDir, "about.html", "<!-- layout: layout.html -->\n{{ define \"content\" }}<ul>{{ range .Company }}{{ template \"card\" . }}{{ end }}</ul>{{ end }}")
	writeTempFile(t, tmplDir, "member.html", "<!-- layout: layout.html -->\n{{ define \"content\" }}{{ with .Member }}<h1>{{ field . \"name\" }}</h1><p>{{ field . \"role\" }}</p>{{ else }}<p>No such member</p>{{ end }}{{ end }}")
	writeTempFile(t, tmplDir, "contact.html", "<!-- layout: layout.html -->\n{{ define \"content\" }}<form method=\"POST\"><input name=\"name\"><input name=\"email\"></form>{{ end }}")
	writeTempFile(t, tmplDir, "careers.html", "<!-- layout: layout.html -->\n{{ define \"content\" }}<h1>Careers</h1>{{ end }}")
	writeTempFile(t, tmplDir, "404.html", "<!-- layout: layout.html -->\n{{ define \"content\" }}<h1>Lost</h1>{{ end }}")

	dataFile := filepath.Join(dir, "data", "company.json")
	if records != "" {
		writeTempFile(t, dir, "data/company.json", records)
	}

	cfg := DefaultConfig()
	cfg.DataFile = dataFile
	cfg.TemplatesDir = tmplDir

	renderer := NewTemplateRenderer(tmplDir, runtime.Env, TemplateFuncs(runtime.Env, dir, dir))
	site := NewSite(cfg, runtime, NewFileStore(dataFile), renderer)

	return &testSite{dataFile: dataFile, handler: site.Routes()}
}

func (s *testSite) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	res := rec.Result()
	body, _ := io.ReadAll(res.Body)
	return res, string(body)
}

func (s *testSite) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

var devRuntime = RuntimeContext{Env: "dev"}

func TestSite_MemberPageForEverySlug(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	for slug, name := range map[string]string{
		"ada-lovelace": "Ada Lovelace",
		"grace-hopper": "Grace Hopper",
		"alan-turing":  "Alan Turing",
	} {
		t.Run(slug, func(t *testing.T) {
			res, body := site.get(t, "/about/"+slug)
			if res.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", res.StatusCode)
			}
			if !strings.Contains(body, "<h1>"+name+"</h1>") {
				t.Errorf("expected %q in body, got: %s", name, body)
			}
		})
	}
}

func TestSite_UnknownMemberRendersEmptyRecord(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	res, body := site.get(t, "/about/nobody")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "No such member") {
		t.Errorf("expected empty-member content, got: %s", body)
	}
	for _, name := range []string{"Ada Lovelace", "Grace Hopper", "Alan Turing"} {
		if strings.Contains(body, name) {
			t.Errorf("did not expect %q in body", name)
		}
	}
}

func TestSite_MemberLookupIsCaseSensitive(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	_, body := site.get(t, "/about/Ada-Lovelace")
	if strings.Contains(body, "Ada Lovelace") {
		t.Errorf("expected no match for differently cased slug, got: %s", body)
	}
}

func TestSite_AboutListsRecordsInStoreOrder(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	res, body := site.get(t, "/about")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "<title>About</title>") {
		t.Errorf("expected About title, got: %s", body)
	}

	last := -1
	for _, name := range []string{"Ada Lovelace", "Grace Hopper", "Alan Turing"} {
		idx := strings.Index(body, name)
		if idx < 0 {
			t.Fatalf("expected %q in body, got: %s", name, body)
		}
		if idx < last {
			t.Errorf("expected %q after previous record", name)
		}
		last = idx
	}
}

func TestSite_ContactPostRerendersForm(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	_, getBody := site.get(t, "/contact")
	res, postBody := site.do(t, postForm("/contact", url.Values{"name": {"Alice"}, "email": {"a@example.com"}}))

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if postBody != getBody {
		t.Errorf("expected POST to render the same form as GET\nGET:  %s\nPOST: %s", getBody, postBody)
	}
	if res.Header.Get("Location") != "" {
		t.Error("did not expect a redirect")
	}
}

func TestSite_ContactPostMissingFieldIsServerError(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	tests := map[string]url.Values{
		"missing email": {"name": {"Alice"}},
		"missing name":  {"email": {"a@example.com"}},
	}

	for name, form := range tests {
		t.Run(name, func(t *testing.T) {
			res, _ := site.do(t, postForm("/contact", form))
			if res.StatusCode != http.StatusInternalServerError {
				t.Errorf("expected 500, got %d", res.StatusCode)
			}
		})
	}
}

func TestSite_StaticPagesIgnoreStore(t *testing.T) {
	// No data file at all.
	site := setupSite(t, "", devRuntime)

	for _, path := range []string{"/", "/careers", "/contact"} {
		res, _ := site.get(t, path)
		if res.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, res.StatusCode)
		}
	}
}

func TestSite_BrokenStoreIsServerError(t *testing.T) {
	tests := map[string]string{
		"missing file":   "",
		"malformed json": `[{"url": "a"`,
	}

	for name, records := range tests {
		t.Run(name, func(t *testing.T) {
			site := setupSite(t, records, devRuntime)
			for _, path := range []string{"/about", "/about/a"} {
				res, _ := site.get(t, path)
				if res.StatusCode != http.StatusInternalServerError {
					t.Errorf("%s: expected 500, got %d", path, res.StatusCode)
				}
			}
		})
	}
}

func TestSite_ServerErrorDetailOnlyInDebug(t *testing.T) {
	debug := setupSite(t, "", RuntimeContext{Env: "dev", Debug: true})
	_, body := debug.get(t, "/about")
	if !strings.Contains(body, "Server error:") {
		t.Errorf("expected error detail in debug mode, got: %s", body)
	}

	quiet := setupSite(t, "", RuntimeContext{Env: "prod"})
	_, body = quiet.get(t, "/about")
	if strings.Contains(body, "company.json") {
		t.Errorf("did not expect error detail outside debug mode, got: %s", body)
	}
	if !strings.Contains(body, "Internal Server Error") {
		t.Errorf("expected generic error body, got: %s", body)
	}
}

func TestSite_MemberPageIsIdempotent(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	res1, body1 := site.get(t, "/about/grace-hopper")
	res2, body2 := site.get(t, "/about/grace-hopper")

	if body1 != body2 {
		t.Errorf("expected identical bodies:\n%s\n%s", body1, body2)
	}
	if res1.Header.Get("ETag") == "" || res1.Header.Get("ETag") != res2.Header.Get("ETag") {
		t.Errorf("expected stable ETag, got %q and %q", res1.Header.Get("ETag"), res2.Header.Get("ETag"))
	}
}

func TestSite_ConditionalGetReturnsNotModified(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	res, _ := site.get(t, "/about/ada-lovelace")
	etag := res.Header.Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/about/ada-lovelace", nil)
	req.Header.Set("If-None-Match", `"other", `+etag)
	res, body := site.do(t, req)

	if res.StatusCode != http.StatusNotModified {
		t.Errorf("expected 304, got %d", res.StatusCode)
	}
	if body != "" {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestSite_ETagChangesWithStore(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	res, _ := site.get(t, "/about")
	before := res.Header.Get("ETag")

	if err := os.WriteFile(site.dataFile, []byte(`[{"url": "x", "name": "Xavier"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	res, body := site.get(t, "/about")
	if res.Header.Get("ETag") == before {
		t.Error("expected a new ETag after the data file changed")
	}
	if !strings.Contains(body, "Xavier") {
		t.Errorf("expected fresh records on the next request, got: %s", body)
	}
}

func TestSite_NotFound(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	tests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/nope", nil),
		httptest.NewRequest(http.MethodGet, "/about/", nil),
		httptest.NewRequest(http.MethodGet, "/about/a/b", nil),
		httptest.NewRequest(http.MethodPost, "/", nil),
		httptest.NewRequest(http.MethodDelete, "/contact", nil),
	}

	for _, req := range tests {
		t.Run(req.Method+" "+req.URL.Path, func(t *testing.T) {
			res, body := site.do(t, req)
			if res.StatusCode != http.StatusNotFound {
				t.Errorf("expected 404, got %d", res.StatusCode)
			}
			if !strings.Contains(body, "<h1>Lost</h1>") {
				t.Errorf("expected rendered 404 page, got: %s", body)
			}
			if res.Header.Get("ETag") != "" {
				t.Error("did not expect an ETag on a 404")
			}
		})
	}
}

func TestSite_NotFoundFallsBackWithoutTemplate(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)
	// Swap in a renderer whose directory has no 404.html.
	renderer := NewTemplateRenderer(t.TempDir(), "dev", TemplateFuncs("dev", ".", "."))
	handler := NewSite(DefaultConfig(), devRuntime, NewFileStore(site.dataFile), renderer).Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404 page not found") {
		t.Errorf("expected default not-found body, got: %s", rec.Body.String())
	}
}

func TestSite_MissingPageTemplateIsNotFound(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)
	tmplDir := filepath.Join(filepath.Dir(filepath.Dir(site.dataFile)), "templates")
	if err := os.Remove(filepath.Join(tmplDir, "careers.html")); err != nil {
		t.Fatal(err)
	}

	res, body := site.get(t, "/careers")
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "<h1>Lost</h1>") {
		t.Errorf("expected rendered 404 page, got: %s", body)
	}

	// A missing data file is still a server error, not a missing page.
	_ = os.Remove(site.dataFile)
	if res, _ := site.get(t, "/about"); res.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 for a missing data file, got %d", res.StatusCode)
	}
}

func TestSite_DebugAddsTemplateHeaderAndRequestID(t *testing.T) {
	site := setupSite(t, sampleRecords, RuntimeContext{Env: "dev", Debug: true})

	res, _ := site.get(t, "/careers")
	if got := res.Header.Get("X-Teamsite-Template"); got != "careers.html" {
		t.Errorf("expected template header, got %q", got)
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}

	quiet := setupSite(t, sampleRecords, RuntimeContext{Env: "prod"})
	res, _ = quiet.get(t, "/careers")
	if res.Header.Get("X-Teamsite-Template") != "" || res.Header.Get("X-Request-ID") != "" {
		t.Error("did not expect debug headers outside debug mode")
	}
}

func TestSite_HeadHasNoBody(t *testing.T) {
	site := setupSite(t, sampleRecords, devRuntime)

	res, body := site.do(t, httptest.NewRequest(http.MethodHead, "/", nil))
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", res.StatusCode)
	}
	if body != "" {
		t.Errorf("expected no body for HEAD, got %q", body)
	}
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}

	if sr.Status() != http.StatusOK {
		t.Errorf("expected 200 before any write, got %d", sr.Status())
	}

	sr.WriteHeader(http.StatusTeapot)
	sr.WriteHeader(http.StatusOK)
	if sr.Status() != http.StatusTeapot {
		t.Errorf("expected first status to stick, got %d", sr.Status())
	}
}

func TestGenerateETag_ConsistentHash(t *testing.T) {
	data := []byte("<html>Hi</html>")
	tag1 := generateETag(data)
	tag2 := generateETag(data)

	if tag1 != tag2 {
		t.Errorf("ETag hash inconsistent: %s vs %s", tag1, tag2)
	}
	if tag1 == generateETag([]byte("<html>Bye</html>")) {
		t.Error("expected different content to produce a different ETag")
	}
	if !strings.HasPrefix(tag1, `"`) || !strings.HasSuffix(tag1, `"`) {
		t.Errorf("expected quoted ETag, got %s", tag1)
	}
}

func TestEtagMatches(t *testing.T) {
	etag := `"abc"`
	tests := map[string]bool{
		"":              false,
		`"abc"`:         true,
		`W/"abc"`:       true,
		`"x", "abc"`:    true,
		`"x"`:           false,
		"*":             true,
		`"abc-suffix"`:  false,
	}
	for header, want := range tests {
		if got := etagMatches(header, etag); got != want {
			t.Errorf("etagMatches(%q) = %v, want %v", header, got, want)
		}
	}
}
