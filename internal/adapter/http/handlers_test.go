package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/selfai-labs/selfai/internal/adapter/fallback"
	"github.com/selfai-labs/selfai/internal/domain/agent"
	"github.com/selfai-labs/selfai/internal/domain/draft"
	"github.com/selfai-labs/selfai/internal/port/generator"
	"github.com/selfai-labs/selfai/internal/service"
)

type stubGenerator struct {
	content string
	err     error
}

var _ generator.Generator = (*stubGenerator)(nil)

func (s *stubGenerator) Generate(context.Context, generator.Request) (string, error) {
	return s.content, s.err
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	w := service.NewWorkflow(service.NewRegistry(), service.NewQueue(), &stubGenerator{content: "generated content"}, fallback.New())
	r := chi.NewRouter()
	MountRoutes(r, &Handlers{Workflow: w})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestAgentCRUD(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/agents", `{"name":"Bot","personality":"witty","expertise":["DeFi"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decode[agent.Agent](t, resp)
	if created.ID == 0 || created.Name != "Bot" {
		t.Fatalf("unexpected agent: %+v", created)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/agents", "")
	agents := decode[[]agent.Agent](t, resp)
	if len(agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(agents))
	}

	resp = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/agents/1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/agents/1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateAgentValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/agents", `{"name":"   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank name, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/agents", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGenerateAndReviewFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/agents", `{"name":"Bot"}`)
	created := decode[agent.Agent](t, resp)

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/agents/1/generate", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate: expected 201, got %d", resp.StatusCode)
	}
	d := decode[draft.Draft](t, resp)
	if d.AgentID != created.ID || d.Content != "generated content" {
		t.Fatalf("unexpected draft: %+v", d)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/drafts", "")
	drafts := decode[[]draft.Draft](t, resp)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 pending draft, got %d", len(drafts))
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/drafts/"+d.ID+"/approve", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Second approval of the same draft is a 404, not a double increment.
	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/drafts/"+d.ID+"/approve", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("re-approve: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/agents/1", "")
	got := decode[agent.Agent](t, resp)
	if got.TotalPosts != 1 {
		t.Errorf("expected 1 total post, got %d", got.TotalPosts)
	}
}

func TestGenerateUnknownAgentReturns404(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/agents/99/generate", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/session/connect", `{"user_id":42,"username":"alice"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d", resp.StatusCode)
	}
	sess := decode[sessionResponse](t, resp)
	if !sess.Connected || sess.Username != "alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/session", "")
	sess = decode[sessionResponse](t, resp)
	if !sess.Connected || sess.UserID != 42 {
		t.Fatalf("session not persisted: %+v", sess)
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/session/disconnect", "")
	sess = decode[sessionResponse](t, resp)
	if sess.Connected {
		t.Error("expected disconnected session")
	}
}

func TestConnectRequiresUsername(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/session/connect", `{"user_id":42,"username":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
