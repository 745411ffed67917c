// Package summary generates meeting summaries and speaker suggestions via
// the configured LLM, with a filesystem cache keyed by job ID.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/observe"
	"github.com/meetmemo/meetmemo/internal/resilience"
	"github.com/meetmemo/meetmemo/pkg/provider/llm"
)

const (
	summarizeTemperature = 0.3
	summarizeMaxTokens   = 5000

	identifyTemperature = 0.1
	identifyMaxTokens   = 500

	// minWords and minUniqueWords gate the LLM call: transcripts below either
	// threshold get a canned response instead of burning an inference.
	minWords       = 10
	minUniqueWords = 5
)

const defaultSystemPrompt = "You are a helpful assistant that summarizes meeting transcripts. " +
	"You will give a concise summary of the key points, decisions made, " +
	"and any action items, outputting it in markdown format. " +
	"IMPORTANT: Always use the exact speaker names provided in the transcript. " +
	"Never change, substitute, or invent different names for speakers. " +
	"CRITICAL: Only summarize what is actually present in the transcript. " +
	"Do not invent or hallucinate content, participants, decisions, or action items."

const defaultUserPrompt = "Analyze the following transcript and provide an appropriate summary. " +
	"Use exact speaker names as they appear. " +
	"Only include sections that have actual content from the transcript. " +
	"Use markdown format without code blocks.\n\n"

const identifySystemPrompt = "You are a helpful assistant that identifies speakers in meeting transcripts. " +
	"Based on the conversation content, suggest likely names or roles for each speaker. " +
	"Return ONLY a JSON object mapping speaker labels to suggested names."

const emptyContentResponse = "# No Content Available\n\n" +
	"The recording appears to be empty or could not be transcribed."

// SpeakerSuggestions is the outcome of speaker identification. Parse
// failures are reported in-band via Status/Message rather than as errors, so
// a chatty model that ignores the JSON instruction degrades gracefully.
type SpeakerSuggestions struct {
	Status      string            `json:"status"`
	Suggestions map[string]string `json:"suggestions,omitempty"`
	Message     string            `json:"message,omitempty"`
}

// Service produces and caches summaries.
type Service struct {
	llm       llm.Provider
	artifacts *artifact.Store
	breaker   *resilience.Breaker
	metrics   *observe.Metrics
	log       *slog.Logger
}

// Config bundles the summary construction parameters.
type Config struct {
	LLM       llm.Provider
	Artifacts *artifact.Store

	// Breaker guards every LLM call.
	Breaker *resilience.Breaker

	// Metrics is optional; a nil value disables instrumentation.
	Metrics *observe.Metrics

	Log *slog.Logger
}

// NewService creates a summary service.
func NewService(cfg Config) *Service {
	return &Service{
		llm:       cfg.LLM,
		artifacts: cfg.Artifacts,
		breaker:   cfg.Breaker,
		metrics:   cfg.Metrics,
		log:       cfg.Log,
	}
}

// recordLLM counts one LLM call outcome. No-op without metrics.
func (s *Service) recordLLM(ctx context.Context, operation string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordLLM(ctx, operation, status)
}

// Summarize produces a markdown summary of the formatted transcript.
// Degenerate transcripts short-circuit to a canned response without calling
// the LLM. systemPrompt and userPrompt override the defaults when non-empty.
func (s *Service) Summarize(ctx context.Context, transcript, systemPrompt, userPrompt string) (string, error) {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return emptyContentResponse, nil
	}

	words := strings.Fields(text)
	if len(words) < minWords || countUniqueWords(words) < minUniqueWords {
		return briefRecordingResponse(words), nil
	}

	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	if userPrompt == "" {
		userPrompt = defaultUserPrompt
	}

	var content string
	err := s.breaker.Do(func() error {
		var callErr error
		content, callErr = s.llm.Complete(ctx, llm.Request{
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt + "\n\n" + text,
			Temperature:  summarizeTemperature,
			MaxTokens:    summarizeMaxTokens,
		})
		return callErr
	})
	s.recordLLM(ctx, "summarize", err)
	if err != nil {
		s.log.Error("summarization failed", "error", err)
		return "", apperr.External(err, "summary service temporarily unavailable")
	}
	return strings.TrimSpace(content), nil
}

// IdentifySpeakers asks the LLM to suggest names or roles for each speaker
// label. meetingContext is optional free-text background.
func (s *Service) IdentifySpeakers(ctx context.Context, transcript, meetingContext string) (*SpeakerSuggestions, error) {
	contextText := "\n\n"
	if meetingContext != "" {
		contextText = "\nContext: " + meetingContext + "\n\n"
	}
	userPrompt := "Analyze this transcript and suggest names or roles for each speaker. " +
		contextText + "Transcript:\n" + transcript + "\n\n" +
		`Return a JSON object like: {"SPEAKER_00": "John (CEO)", "SPEAKER_01": "Sarah (CTO)"}`

	var content string
	err := s.breaker.Do(func() error {
		var callErr error
		content, callErr = s.llm.Complete(ctx, llm.Request{
			SystemPrompt: identifySystemPrompt,
			UserPrompt:   userPrompt,
			Temperature:  identifyTemperature,
			MaxTokens:    identifyMaxTokens,
		})
		return callErr
	})
	s.recordLLM(ctx, "identify", err)
	if err != nil {
		s.log.Error("speaker identification failed", "error", err)
		return nil, apperr.External(err, "summary service temporarily unavailable")
	}

	suggestions, parseErr := extractMapping(content)
	if parseErr != nil {
		return &SpeakerSuggestions{
			Status:  "error",
			Message: fmt.Sprintf("speaker identification failed: %v", parseErr),
		}, nil
	}
	return &SpeakerSuggestions{Status: "success", Suggestions: suggestions}, nil
}

// GetOrGenerate returns the cached summary for jobID, generating and caching
// one when absent.
func (s *Service) GetOrGenerate(ctx context.Context, jobID, transcript string) (summary string, cached bool, err error) {
	if data, err := s.artifacts.ReadSummary(jobID); err == nil {
		return string(data), true, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return "", false, err
	}

	generated, err := s.Summarize(ctx, transcript, "", "")
	if err != nil {
		return "", false, err
	}
	if err := s.artifacts.WriteSummary(jobID, []byte(generated)); err != nil {
		return "", false, err
	}
	return generated, false, nil
}

// Regenerate discards any cached summary and produces a fresh one with the
// given prompt overrides, caching the result.
func (s *Service) Regenerate(ctx context.Context, jobID, transcript, systemPrompt, userPrompt string) (string, error) {
	if err := s.Invalidate(jobID); err != nil {
		return "", err
	}
	generated, err := s.Summarize(ctx, transcript, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	if err := s.artifacts.WriteSummary(jobID, []byte(generated)); err != nil {
		return "", err
	}
	return generated, nil
}

// Put overwrites the cached summary with user-authored text.
func (s *Service) Put(jobID, text string) error {
	return s.artifacts.WriteSummary(jobID, []byte(text))
}

// Invalidate drops the cached summary for jobID.
func (s *Service) Invalidate(jobID string) error {
	return s.artifacts.RemoveSummary(jobID)
}

// countUniqueWords counts case-insensitive unique tokens after stripping
// common punctuation.
func countUniqueWords(words []string) int {
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.Trim(strings.ToLower(w), ".,!?;:")] = struct{}{}
	}
	return len(unique)
}

func briefRecordingResponse(words []string) string {
	return fmt.Sprintf(`# Brief Recording Summary

## Content
This appears to be a very short recording with limited content.

**Transcribed content:** %q

## Note
The recording was too brief to generate a detailed meeting summary.`, strings.Join(words, " "))
}

// extractMapping pulls a speaker mapping out of the model response, trying
// a direct parse, then a fenced code block, then the first {...} substring.
func extractMapping(content string) (map[string]string, error) {
	content = strings.TrimSpace(content)

	var mapping map[string]string
	if err := json.Unmarshal([]byte(content), &mapping); err == nil {
		return mapping, nil
	}

	if block, ok := fencedBlock(content); ok {
		if err := json.Unmarshal([]byte(block), &mapping); err == nil {
			return mapping, nil
		}
	}

	open := strings.Index(content, "{")
	closing := strings.LastIndex(content, "}")
	if open >= 0 && closing > open {
		if err := json.Unmarshal([]byte(content[open:closing+1]), &mapping); err == nil {
			return mapping, nil
		}
	}

	return nil, fmt.Errorf("no JSON object found in model response")
}

// fencedBlock extracts the body of the first ``` code fence, tolerating an
// optional "json" language tag.
func fencedBlock(content string) (string, bool) {
	_, rest, ok := strings.Cut(content, "```")
	if !ok {
		return "", false
	}
	rest = strings.TrimPrefix(rest, "json")
	body, _, ok := strings.Cut(rest, "```")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(body), true
}
