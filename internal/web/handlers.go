package web

import (
	"encoding/gob"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/ainsight/internal/chart"
	"github.com/KaramelBytes/ainsight/internal/insight"
	"github.com/KaramelBytes/ainsight/internal/session"
	"github.com/gorilla/sessions"
)

const (
	cookieName = "ainsight"
	sessionKey = "sid"
)

func init() {
	// Flash messages are gob-encoded into the cookie.
	gob.Register(insight.Notice{})
}

// Handlers provides the HTTP handlers of the UI.
type Handlers struct {
	orchestrator *insight.Orchestrator
	sessions     *session.Store
	cookies      sessions.Store
	logger       *slog.Logger
	maxUpload    int64
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(o *insight.Orchestrator, store *session.Store, cookies sessions.Store, logger *slog.Logger, maxUpload int64) *Handlers {
	return &Handlers{
		orchestrator: o,
		sessions:     store,
		cookies:      cookies,
		logger:       logger,
		maxUpload:    maxUpload,
	}
}

// visit resolves the caller's state through the session cookie, creating
// both when missing. The cookie is not saved; callers save it before
// writing a response.
func (h *Handlers) visit(r *http.Request) (*sessions.Session, *session.State) {
	sess, err := h.cookies.Get(r, cookieName)
	if err != nil {
		// A cookie signed with another secret decodes as a fresh session.
		h.logger.Debug("session cookie rejected", "err", err)
	}
	id, _ := sess.Values[sessionKey].(string)
	st := h.sessions.Acquire(id)
	sess.Values[sessionKey] = st.ID
	return sess, st
}

func (h *Handlers) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	if err := sess.Save(r, w); err != nil {
		h.logger.Warn("save session cookie", "err", err)
	}
}

// redirectHome sends the browser back to the page, keeping the analysis
// choices that came with the form.
func (h *Handlers) redirectHome(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if q := r.FormValue("return"); strings.HasPrefix(q, "?") {
		target += q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Page renders the whole analysis page for the choices in the query string.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	sess, st := h.visit(r)
	var flashes []insight.Notice
	for _, f := range sess.Flashes() {
		if n, ok := f.(insight.Notice); ok {
			flashes = append(flashes, n)
		}
	}
	h.save(w, r, sess)

	req := parseRequest(r.URL.Query())

	st.Lock()
	view := h.orchestrator.Render(r.Context(), st, req)
	key := keyState{Status: st.KeyStatus.String(), Message: st.KeyMessage, Set: st.APIKey != ""}
	st.Unlock()

	data := newPageData(view, flashes, key)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("render page", "err", err)
	}
}

// Credential probes the submitted key and stores it on the session.
func (h *Handlers) Credential(w http.ResponseWriter, r *http.Request) {
	sess, st := h.visit(r)
	key := strings.TrimSpace(r.FormValue("api_key"))

	st.Lock()
	h.orchestrator.Probe(r.Context(), st, key)
	st.Unlock()

	h.save(w, r, sess)
	h.redirectHome(w, r)
}

// Upload ingests a CSV file from the multipart field "file".
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	sess, st := h.visit(r)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	sess.AddFlash(h.ingest(r, st))
	h.save(w, r, sess)
	h.redirectHome(w, r)
}

func (h *Handlers) ingest(r *http.Request, st *session.State) insight.Notice {
	fail := func(msg string) insight.Notice {
		h.logger.Warn("upload rejected", "reason", msg)
		return insight.Notice{Level: insight.LevelError, Kind: insight.KindParse, Text: "Error reading file: " + msg}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fail("file is too large")
		}
		return fail("no file uploaded")
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return fail("only .csv files are accepted")
	}

	st.Lock()
	defer st.Unlock()
	return h.orchestrator.Ingest(st, name, file)
}

// Chart renders a standalone chart page, meant for an iframe.
func (h *Handlers) Chart(w http.ResponseWriter, r *http.Request) {
	sess, st := h.visit(r)
	h.save(w, r, sess)

	req := parseRequest(r.URL.Query())
	st.Lock()
	c, err := h.orchestrator.Chart(st, req)
	st.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		if terr := chartErrorTemplate.Execute(w, insight.ChartNotice(err)); terr != nil {
			h.logger.Error("render chart error", "err", terr)
		}
		return
	}
	if err := c.Render(w); err != nil {
		h.logger.Error("render chart", "kind", string(req.Chart.Kind), "err", err)
	}
}

// EndSession discards the caller's state and cookie.
func (h *Handlers) EndSession(w http.ResponseWriter, r *http.Request) {
	sess, st := h.visit(r)
	h.sessions.Delete(st.ID)
	sess.Options.MaxAge = -1
	h.save(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseRequest reads the render choices from query parameters.
func parseRequest(q url.Values) insight.Request {
	req := insight.Request{
		Scope:   insight.ParseScope(q.Get("scope")),
		Columns: q["columns"],
		Chart: chart.Spec{
			X:     q.Get("x"),
			Y:     q.Get("y"),
			Color: q.Get("color"),
		},
	}
	if raw := q.Get("kind"); raw != "" {
		k, err := chart.ParseKind(raw)
		if err != nil {
			// Unknown kinds reach chart.Build, which reports them.
			k = chart.Kind(raw)
		}
		req.Chart.Kind = k
	}
	return req
}

// encodeRequest is the inverse of parseRequest.
func encodeRequest(req insight.Request) url.Values {
	q := url.Values{}
	q.Set("scope", string(req.Scope))
	for _, c := range req.Columns {
		q.Add("columns", c)
	}
	if req.Chart.Kind != "" {
		q.Set("kind", string(req.Chart.Kind))
	}
	for k, v := range map[string]string{"x": req.Chart.X, "y": req.Chart.Y, "color": req.Chart.Color} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}
