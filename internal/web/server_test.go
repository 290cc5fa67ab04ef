package web

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KaramelBytes/ainsight/internal/ai"
	"github.com/KaramelBytes/ainsight/internal/insight"
	"github.com/KaramelBytes/ainsight/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv    *httptest.Server
	client *http.Client
	server *Server
}

func newFixture(t *testing.T, reply func(key string, req ai.GenerateRequest) (*ai.GenerateResponse, error)) *fixture {
	t.Helper()
	factory := func(key string) ai.Runtime {
		return ai.RuntimeFunc(func(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
			return reply(key, req)
		})
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	s := NewServer(Config{
		Orchestrator:  insight.New(insight.DefaultConfig(), factory, logger, m),
		SessionSecret: "test-secret-0123456789abcdef0123",
		SessionIdle:   time.Hour,
		Logger:        logger,
		Metrics:       m,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &fixture{srv: srv, client: &http.Client{Jar: jar}, server: s}
}

func okReply(text string) func(string, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return func(string, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: text}}}}, nil
	}
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := f.client.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (f *fixture) upload(t *testing.T, filename, content string) (int, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := f.client.Post(f.srv.URL+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

const tenRows = `name,city,score
a,Oslo,1
b,Rome,2
c,Oslo,3
d,Lima,4
e,Rome,5
f,Oslo,6
g,Lima,7
h,Rome,8
i,Oslo,9
j,Lima,10
`

func TestEmptySessionPrompt(t *testing.T) {
	f := newFixture(t, okReply("x"))
	code, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Upload a CSV file to get started!")
	assert.NotContains(t, body, "Preview of")
}

func TestUploadAndAnalyze(t *testing.T) {
	f := newFixture(t, okReply("**Trend**: scores rise"))

	code, body := f.upload(t, "cities.csv", tenRows)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "File &#39;cities.csv&#39; uploaded successfully!")
	assert.Contains(t, body, "Preview of cities.csv")
	assert.Contains(t, body, "AI-Powered Insights")
	assert.Contains(t, body, "Data-Driven Insights")
	assert.Contains(t, body, "<strong>Trend</strong>")
	assert.Contains(t, body, "Suggested Visualizations")
	assert.Contains(t, body, `src="/chart?`)

	// The flash is shown once.
	_, body = f.get(t, "/")
	assert.NotContains(t, body, "uploaded successfully")
	assert.Contains(t, body, "Preview of cities.csv")
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		want     string
	}{
		{"wrong extension", "data.txt", tenRows, "Error reading file: only .csv files are accepted"},
		{"malformed", "bad.csv", "a,b\n1,2,3\n", "Error reading file: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, okReply("x"))
			_, body := f.upload(t, tt.filename, tt.content)
			assert.Contains(t, body, tt.want)
			assert.Contains(t, body, "Upload a CSV file to get started!")
		})
	}
}

func TestNoColumnsSelected(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, func(string, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		calls.Add(1)
		return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: "x"}}}}, nil
	})
	f.upload(t, "cities.csv", tenRows)
	calls.Store(0)

	_, body := f.get(t, "/?scope=columns")
	assert.Contains(t, body, "No columns selected for analysis.")
	assert.NotContains(t, body, "AI-Powered Insights")
	assert.NotContains(t, body, "Create Visualizations")
	assert.Zero(t, calls.Load())
}

func TestInsightFailureNotice(t *testing.T) {
	f := newFixture(t, func(string, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return nil, &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "bad key"}}
	})
	_, body := f.upload(t, "cities.csv", tenRows)
	assert.Contains(t, body, "Failed to generate insights: ")
	assert.Contains(t, body, `data-kind="auth"`)
	assert.Contains(t, body, "Create Visualizations", "chart block survives insight failures")
}

func TestCredentialProbe(t *testing.T) {
	f := newFixture(t, func(key string, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
		if key != "sk-good" {
			return nil, &ai.AuthError{APIError: &ai.APIError{StatusCode: 401}}
		}
		return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: "hi"}}}}, nil
	})

	resp, err := f.client.PostForm(f.srv.URL+"/credential", url.Values{"api_key": {"sk-bad"}})
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Invalid OpenAI API token. Please enter a valid token.")

	resp, err = f.client.PostForm(f.srv.URL+"/credential", url.Values{"api_key": {"sk-good"}})
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Token validated! You may now proceed.")
}

func TestChartEndpoint(t *testing.T) {
	f := newFixture(t, okReply("x"))
	f.upload(t, "cities.csv", tenRows)

	code, body := f.get(t, "/chart?scope=entire&kind=Pie+Chart&x=city&y=score")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Pie Chart")
	assert.Contains(t, body, "echarts")

	code, body = f.get(t, "/chart?scope=entire&kind=scatter&x=city")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body, "Error creating visualization: ")
	assert.Contains(t, body, `data-kind="render"`)
}

func TestSessionsAreIsolatedAndEndable(t *testing.T) {
	f := newFixture(t, okReply("x"))
	f.upload(t, "cities.csv", tenRows)

	other := &fixture{srv: f.srv, client: &http.Client{}}
	_, body := other.get(t, "/")
	assert.Contains(t, body, "Upload a CSV file to get started!")

	resp, err := f.client.Post(f.srv.URL+"/session/end", "application/x-www-form-urlencoded", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()

	_, body = f.get(t, "/")
	assert.Contains(t, body, "Upload a CSV file to get started!")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, okReply("x"))
	code, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	f.upload(t, "cities.csv", tenRows)
	code, body = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `uploads_total{result="ok"} 1`)
	assert.Contains(t, body, `http_requests_total{method="POST",path="/upload",status="303"} 1`)
}

func TestRequestRoundTrip(t *testing.T) {
	q, err := url.ParseQuery("scope=columns&columns=b&columns=a&kind=Box+Plot&x=a&y=b&color=c")
	require.NoError(t, err)
	req := parseRequest(q)
	assert.Equal(t, insight.ScopeColumns, req.Scope)
	assert.Equal(t, []string{"b", "a"}, req.Columns)
	assert.Equal(t, "box", string(req.Chart.Kind))
	assert.Equal(t, req, parseRequest(encodeRequest(req)))
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(renderMarkdown("# Title\n\n<script>alert(1)</script>\n\n- one\n- two"))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<li>one</li>")
	assert.NotContains(t, out, "<script>")
}

func TestSessionCookieWorksOverPlainHTTP(t *testing.T) {
	f := newFixture(t, okReply("x"))

	resp, err := f.client.Get(f.srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	var sc *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			sc = c
		}
	}
	require.NotNil(t, sc, "session cookie is set")
	assert.False(t, sc.Secure)
	assert.True(t, sc.HttpOnly)

	_, _ = f.upload(t, "cities.csv", tenRows)
	_, body := f.get(t, "/")
	assert.Contains(t, body, "Preview of cities.csv")
	assert.NotContains(t, body, "Upload a CSV file to get started!")
}

func TestSecureCookieOptIn(t *testing.T) {
	s := NewServer(Config{SessionSecret: "test-secret-0123456789abcdef0123", SecureCookie: true})
	assert.True(t, s.cookieStore.Options.Secure)
	s = NewServer(Config{SessionSecret: "test-secret-0123456789abcdef0123"})
	assert.False(t, s.cookieStore.Options.Secure)
}
