package http_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-europa/framework/container"
	gohttp "github.com/km-arc/go-europa/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newFormRequest(t *testing.T, values url.Values) *gohttp.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return gohttp.NewRequest(req)
}

func newGetRequest(t *testing.T, rawQuery string) *gohttp.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return gohttp.NewRequest(req)
}

// ── Input ─────────────────────────────────────────────────────────────

func TestRequest_Input(t *testing.T) {
	vals := url.Values{"username": {"charlie"}}
	req := newFormRequest(t, vals)

	if got := req.Input("username"); got != "charlie" {
		t.Errorf("Input: got %q want %q", got, "charlie")
	}
}

func TestRequest_Input_Fallback(t *testing.T) {
	req := newGetRequest(t, "")
	if got := req.Input("missing", "default"); got != "default" {
		t.Errorf("Input fallback: got %q want %q", got, "default")
	}
}

func TestRequest_All(t *testing.T) {
	vals := url.Values{"a": {"1"}, "b": {"2"}}
	req := newFormRequest(t, vals)
	all := req.All()

	if all["a"] != "1" {
		t.Errorf("All[a]: got %q want %q", all["a"], "1")
	}
	if all["b"] != "2" {
		t.Errorf("All[b]: got %q want %q", all["b"], "2")
	}
}

// ── Headers ──────────────────────────────────────────────────────────────────

func TestRequest_Header(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Custom", "value123")
	req := gohttp.NewRequest(r)

	if got := req.Header("X-Custom"); got != "value123" {
		t.Errorf("Header: got %q want %q", got, "value123")
	}
}

// ── Method / Path ─────────────────────────────────────────────────────────────

func TestRequest_Method(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/resource/1", nil)
	req := gohttp.NewRequest(r)
	if req.Method() != http.MethodDelete {
		t.Errorf("Method: got %q want DELETE", req.Method())
	}
}

func TestRequest_Path(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req := gohttp.NewRequest(r)
	if req.Path() != "/api/v1/users" {
		t.Errorf("Path: got %q want /api/v1/users", req.Path())
	}
}

// ── Params ────────────────────────────────────────────────────────────────────

func TestRequest_RouteParamsCopied(t *testing.T) {
	var got *gohttp.Request
	mux := chi.NewRouter()
	mux.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		got = gohttp.NewRequest(r)
	})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/42", nil))

	if got == nil {
		t.Fatal("route did not match")
	}
	if got.Param("id") != "42" {
		t.Errorf("Param(id): got %q want 42", got.Param("id"))
	}
}

func TestRequest_ParamFallsBackToInput(t *testing.T) {
	req := newGetRequest(t, "page=3")
	if got := req.Param("page"); got != "3" {
		t.Errorf("Param(page): got %q want 3", got)
	}

	req.SetParam("page", "9")
	if got := req.Param("page"); got != "9" {
		t.Errorf("Param(page) after SetParam: got %q want 9", got)
	}
	if got := req.Param("missing", "dflt"); got != "dflt" {
		t.Errorf("Param fallback: got %q", got)
	}
}

func TestRequest_Controller(t *testing.T) {
	req := newGetRequest(t, "")
	if req.Controller() != "" {
		t.Errorf("Controller: got %q want empty", req.Controller())
	}
	req.SetController("error")
	if req.Controller() != "error" {
		t.Errorf("Controller: got %q want error", req.Controller())
	}
	req.SetParams(map[string]string{"a": "1", "b": "2"})
	keys := req.ParamKeys()
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "controller" {
		t.Errorf("ParamKeys: got %v", keys)
	}
}

func TestRequest_Services(t *testing.T) {
	req := newGetRequest(t, "")
	if req.Services() != nil {
		t.Error("Services should be nil until set")
	}
	c := container.New()
	if req.SetServices(c).Services() != c {
		t.Error("Services should return the attached container")
	}
}

// ── CLI ───────────────────────────────────────────────────────────────────────

func TestCLIRequest_Parse(t *testing.T) {
	req := gohttp.NewCLIRequest([]string{"index", "extra", "--name", "world", "-v", "--mode=fast", "-q"})

	if !req.IsCLI() || req.Method() != gohttp.MethodCLI {
		t.Errorf("Method: got %q want cli", req.Method())
	}
	if req.Controller() != "index" {
		t.Errorf("Controller: got %q want index", req.Controller())
	}

	want := map[string]string{"name": "world", "v": "true", "mode": "fast", "q": "true"}
	for k, v := range want {
		if got := req.Param(k); got != v {
			t.Errorf("Param(%s): got %q want %q", k, got, v)
		}
	}
	if req.String() != "index extra" {
		t.Errorf("String: got %q", req.String())
	}
	if req.Path() != "/index/extra" {
		t.Errorf("Path: got %q", req.Path())
	}
	if cmds := req.Commands(); len(cmds) != 2 || cmds[1] != "extra" {
		t.Errorf("Commands: got %v", cmds)
	}
}

func TestCLIRequest_ExplicitController(t *testing.T) {
	req := gohttp.NewCLIRequest([]string{"ignored", "--controller", "error"})
	if req.Controller() != "error" {
		t.Errorf("Controller: got %q want error", req.Controller())
	}
}

func TestCLIRequest_NoHTTPSurface(t *testing.T) {
	req := gohttp.NewCLIRequest([]string{"--token", "abc"})

	if req.Input("token") != "abc" {
		t.Error("Input should read CLI params")
	}
	if req.Header("Authorization") != "" {
		t.Error("CLI requests have no headers")
	}
	if req.Raw() != nil {
		t.Error("CLI requests wrap no *http.Request")
	}
	if all := req.All(); all["token"] != "abc" {
		t.Errorf("All: got %v", all)
	}
}
