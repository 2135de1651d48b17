package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/forge-ai/codeforge/shared/events"
	"github.com/forge-ai/codeforge/shared/extract"
	"github.com/forge-ai/codeforge/shared/llm"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const noAnalysis = "No analysis available"

// Router builds the HTTP surface. CORS wraps the whole router so preflight
// requests never reach the handlers.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/generate-code", s.handleGenerateCode).Methods("POST")
	r.HandleFunc("/analyze-text", s.handleAnalyzeText).Methods("POST")
	r.HandleFunc("/ping", s.handlePing).Methods("GET")
	r.HandleFunc("/ws", s.hub.ServeWS)

	return cors(r)
}

type generateResponse struct {
	GeneratedCode string `json:"generatedCode"`
	Language      string `json:"language"`
}

type analyzeResponse struct {
	Analysis string `json:"analysis"`
}

func (s *Server) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid body", err.Error(), 400)
		return
	}
	req.applyDefaults()

	ctx := r.Context()
	id := uuid.New().String()
	start := time.Now()
	logger := log.With().Str("request_id", id).Str("route", "generate-code").
		Str("language", req.Language).Str("model", s.cfg.Codegen.Name).Logger()

	s.emitter.Emit(ctx, events.CodegenStarted, events.CodegenStartedPayload{
		RequestID: id, Language: req.Language, Model: s.cfg.Codegen.Name, Provider: s.provider.Name(),
	})

	stream, err := s.provider.Stream(ctx, s.cfg.Codegen.Request(buildPrompt(req)))
	if err != nil {
		logger.Error().Err(err).Msg("upstream stream failed")
		s.emitter.Emit(ctx, events.CodegenFailed, events.FailedPayload{RequestID: id, Error: err.Error()})
		jsonErr(w, "Code generation failed", err.Error(), 500)
		return
	}
	defer stream.Close()

	ex := extract.New(req.Language)
	seq := 0
	err = extract.Drain(ctx, stream, ex, func(fragment string) {
		seq++
		s.emitter.Emit(ctx, events.CodegenFragment, events.CodegenFragmentPayload{
			RequestID: id, Seq: seq, Text: fragment, Inside: ex.State() == extract.Inside,
		})
	})
	partial := err != nil
	if partial {
		logger.Warn().Err(err).Int("fragments", ex.Fragments()).Msg("upstream stream ended early, returning partial result")
	}

	code := ex.Result()
	s.emitter.Emit(ctx, events.CodegenComplete, events.CodegenCompletePayload{
		RequestID:  id,
		Language:   req.Language,
		Fragments:  ex.Fragments(),
		Fences:     ex.Fences(),
		CodeLength: len(code),
		Partial:    partial,
		DurationMS: time.Since(start).Milliseconds(),
	})
	logger.Info().
		Int("fragments", ex.Fragments()).
		Int("fences", ex.Fences()).
		Dur("duration", time.Since(start)).
		Msg("code generated")

	jsonOK(w, generateResponse{GeneratedCode: code, Language: req.Language}, 200)
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid body", err.Error(), 400)
		return
	}
	req.applyDefaults()

	ctx := r.Context()
	id := uuid.New().String()
	start := time.Now()
	logger := log.With().Str("request_id", id).Str("route", "analyze-text").
		Str("model", s.cfg.Analysis.Name).Logger()

	s.emitter.Emit(ctx, events.AnalysisStarted, events.AnalysisStartedPayload{
		RequestID: id, Model: s.cfg.Analysis.Name, Provider: s.provider.Name(),
	})

	analysis, err := s.provider.Complete(ctx, s.cfg.Analysis.Request(req.Prompt))
	if errors.Is(err, llm.ErrEmptyResponse) {
		analysis, err = noAnalysis, nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		s.emitter.Emit(ctx, events.AnalysisFailed, events.FailedPayload{RequestID: id, Error: err.Error()})
		jsonErr(w, "Analysis failed", err.Error(), 500)
		return
	}

	s.emitter.Emit(ctx, events.AnalysisComplete, events.AnalysisCompletePayload{
		RequestID: id, Length: len(analysis), DurationMS: time.Since(start).Milliseconds(),
	})
	logger.Info().Dur("duration", time.Since(start)).Msg("analysis done")

	jsonOK(w, analyzeResponse{Analysis: analysis}, 200)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]any{"status": "ok", "message": "Server is running"}, 200)
}

func jsonOK(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg, details string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "details": details})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}
