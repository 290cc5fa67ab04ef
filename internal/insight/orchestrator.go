// Package insight runs the interactive analysis pipeline: credential probe,
// CSV ingestion, scope selection, the size guard, statistical summary, the
// two model calls and chart dispatch.
package insight

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/KaramelBytes/ainsight/internal/ai"
	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/KaramelBytes/ainsight/internal/metrics"
	"github.com/KaramelBytes/ainsight/internal/session"
	"github.com/KaramelBytes/ainsight/internal/utils"
)

// Config holds pipeline knobs.
type Config struct {
	Model           string
	MaxRows         int
	Seed            int64
	DataTemperature float64
	PreviewRows     int
	Parse           analysis.ParseOptions
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Model:           "gpt-4o-mini",
		MaxRows:         500,
		Seed:            42,
		DataTemperature: 0.5,
		PreviewRows:     100,
		Parse:           analysis.DefaultParseOptions(),
	}
}

// RuntimeFactory returns a chat runtime authenticated with apiKey.
type RuntimeFactory func(apiKey string) ai.Runtime

// Orchestrator is safe for concurrent use; per-session serialization is the
// caller's job (hold the session.State lock across a call).
type Orchestrator struct {
	cfg     Config
	runtime RuntimeFactory
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New builds an orchestrator. logger and m may be nil.
func New(cfg Config, factory RuntimeFactory, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = def.MaxRows
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = def.PreviewRows
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{cfg: cfg, runtime: factory, log: logger, metrics: m}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// ProbeOutcome is the result class of a credential probe.
type ProbeOutcome int

const (
	ProbeValid ProbeOutcome = iota
	ProbeAuthFailed
	ProbeFailed
)

// ProbeResult is what the credential probe reports.
type ProbeResult struct {
	Outcome ProbeOutcome
	Notice  Notice
	Err     error
}

// CheckKey makes one round trip to the chat endpoint with key.
func (o *Orchestrator) CheckKey(ctx context.Context, key string) ProbeResult {
	start := time.Now()
	_, _, err := ai.Complete(ctx, o.runtime(key), probeRequest(o.cfg.Model))
	d := time.Since(start)
	if err == nil {
		o.metrics.RecordChatCall("probe", "ok", d)
		o.log.Info("credential probe", "outcome", "valid", "duration", d)
		return ProbeResult{Outcome: ProbeValid, Notice: success("Token validated! You may now proceed.")}
	}
	kind := Classify(err)
	o.metrics.RecordChatCall("probe", kind.String(), d)
	o.log.Warn("credential probe", "outcome", "failed", "kind", kind.String(), "duration", d, "err", err)
	if kind == KindAuth {
		return ProbeResult{Outcome: ProbeAuthFailed, Err: err,
			Notice: Notice{Level: LevelWarning, Kind: kind, Text: "Invalid OpenAI API token. Please enter a valid token."}}
	}
	return ProbeResult{Outcome: ProbeFailed, Err: err,
		Notice: Notice{Level: LevelWarning, Kind: kind, Text: "Token validation failed. Please check your connection or API usage."}}
}

// Probe checks key and records it and the outcome on st. The key is kept
// whatever the outcome, as later calls report their own failures.
func (o *Orchestrator) Probe(ctx context.Context, st *session.State, key string) ProbeResult {
	res := o.CheckKey(ctx, key)
	st.APIKey = key
	st.KeyMessage = res.Notice.Text
	switch res.Outcome {
	case ProbeValid:
		st.KeyStatus = session.KeyValid
	case ProbeAuthFailed:
		st.KeyStatus = session.KeyInvalid
	default:
		st.KeyStatus = session.KeyCheckFailed
	}
	return res
}

// Ingest parses r as CSV and, on success, replaces the session's table.
// On failure the session is left as it was.
func (o *Orchestrator) Ingest(st *session.State, name string, r io.Reader) Notice {
	t, err := analysis.ParseCSV(name, r, o.cfg.Parse)
	if err != nil {
		o.metrics.RecordUpload("error")
		o.log.Warn("upload rejected", "file", name, "err", err)
		return failure(Classify(err), "Error reading file: "+err.Error())
	}
	st.Data = t
	st.UploadedFileName = name
	o.metrics.RecordUpload("ok")
	o.log.Info("upload accepted", "file", name, "rows", t.NumRows(), "cols", t.NumCols())
	return success("File '" + name + "' uploaded successfully!")
}

// complete runs one model call and turns the outcome into an Insight.
func (o *Orchestrator) complete(ctx context.Context, apiKey, call string, req ai.GenerateRequest) Insight {
	est := 0
	for _, m := range req.Messages {
		est += utils.CountTokens(m.Content)
	}
	if mi, ok := ai.LookupModel(req.Model); ok && est > mi.ContextTokens {
		o.log.Warn("prompt may exceed model context", "call", call, "model", req.Model, "prompt_tokens_est", est, "context_tokens", mi.ContextTokens)
	}

	start := time.Now()
	text, resp, err := ai.Complete(ctx, o.runtime(apiKey), req)
	d := time.Since(start)
	if err != nil {
		kind := Classify(err)
		o.metrics.RecordChatCall(call, kind.String(), d)
		o.log.Warn("chat call failed", "call", call, "model", req.Model, "kind", kind.String(), "duration", d, "err", err)
		n := failure(kind, "Failed to generate insights: "+err.Error())
		return Insight{Notice: &n}
	}
	o.metrics.RecordChatCall(call, "ok", d)
	attrs := []any{
		"call", call,
		"model", req.Model,
		"prompt_tokens_est", est,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", d,
	}
	if cost, ok := ai.EstimateCostUSD(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); ok {
		attrs = append(attrs, "cost_usd", cost)
	}
	if resp.RequestID != "" {
		attrs = append(attrs, "request_id", resp.RequestID)
	}
	o.log.Info("chat call", attrs...)
	return Insight{Markdown: text, Usage: resp.Usage}
}
