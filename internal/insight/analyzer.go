// Package insight produces dream interpretations, symbol extractions and
// pattern summaries by prompting a text-generation model and decoding its
// loosely formatted JSON replies.
//
// Decoding never fails a caller: a reply that cannot be read is replaced by
// fixed placeholder content, logged and counted. Generator failures do
// surface, as ExternalServiceUnavailable or ExternalServiceTimeout errors.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/config"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// Placeholder content used when a reply cannot be decoded.
const (
	FallbackTrend          = "Unable to detect patterns from current data"
	FallbackRecommendation = "Record more dreams to identify meaningful patterns"
	FallbackSymbolic       = "Unable to parse symbolic meaning"
	FallbackCultural       = "Unable to parse cultural context"
)

// Operation labels for logs and metrics.
const (
	opPatterns        = "patterns"
	opInterpret       = "interpret"
	opSymbols         = "symbols"
	opRecommendations = "recommendations"
)

// Options bounds the analyzer's inputs and calls.
type Options struct {
	MinEntries   int
	MaxEntries   int
	ExcerptChars int
	Timeout      time.Duration
	Style        string
}

// OptionsFromConfig maps the ai config section to Options.
func OptionsFromConfig(cfg config.AIConfig) Options {
	return Options{
		MinEntries:   cfg.MinEntries,
		MaxEntries:   cfg.MaxEntries,
		ExcerptChars: cfg.BodyExcerptChars,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		Style:        cfg.InterpretationStyle,
	}
}

// Interpretation is the reading of a single dream.
type Interpretation struct {
	PsychologicalAnalysis string   `json:"psychologicalAnalysis"`
	SymbolicMeaning       string   `json:"symbolicMeaning"`
	CulturalContext       string   `json:"culturalContext"`
	PossibleMeanings      []string `json:"possibleMeanings"`
}

// Text renders the interpretation as the summary stored on an entry.
func (in Interpretation) Text() string {
	var b strings.Builder
	b.WriteString("PSYCHOLOGICAL ANALYSIS:\n" + in.PsychologicalAnalysis + "\n\n")
	b.WriteString("SYMBOLIC MEANING:\n" + in.SymbolicMeaning + "\n\n")
	b.WriteString("CULTURAL CONTEXT:\n" + in.CulturalContext)
	if len(in.PossibleMeanings) > 0 {
		b.WriteString("\n\nPOSSIBLE MEANINGS:")
		for i, m := range in.PossibleMeanings {
			fmt.Fprintf(&b, "\n%d. %s", i+1, m)
		}
	}
	return b.String()
}

// ExtractedSymbol is one symbol the model found in a dream.
type ExtractedSymbol struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Meaning  string `json:"meaning"`
}

// Analyzer runs the model-backed operations. At most one model call is in
// flight at a time; a concurrent request fails with a Busy error.
type Analyzer struct {
	gen     Generator
	opts    Options
	logger  *zap.Logger
	metrics *Metrics
	guard   *semaphore.Weighted
	now     func() time.Time
}

// NewAnalyzer creates an Analyzer. gen may be nil, in which case every
// operation reports the service as unavailable. Zero option values fall
// back to 3 minimum entries, 20 maximum entries and 200-character excerpts.
func NewAnalyzer(gen Generator, opts Options, logger *zap.Logger, metrics *Metrics) *Analyzer {
	if opts.MinEntries <= 0 {
		opts.MinEntries = 3
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 20
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Analyzer{
		gen:     gen,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		guard:   semaphore.NewWeighted(1),
		now:     time.Now,
	}
}

// FindPatterns summarizes recurring symbols, emotional trends and
// recommendations across entries. total is the number of entries in the
// whole journal; below the minimum the call fails with InsufficientData.
// Only the first MaxEntries entries are sent, each cut to ExcerptChars.
func (a *Analyzer) FindPatterns(ctx context.Context, entries []storage.Entry, total int) (*storage.Pattern, error) {
	const op = "insight.FindPatterns"

	if total < a.opts.MinEntries {
		return nil, apperror.InsufficientData(op, total, a.opts.MinEntries)
	}
	if len(entries) > a.opts.MaxEntries {
		entries = entries[:a.opts.MaxEntries]
	}

	raw, err := a.call(ctx, op, opPatterns, patternPrompt(entries, a.opts.ExcerptChars))
	if err != nil {
		return nil, err
	}

	var resp struct {
		RecurringSymbols *[]string `json:"recurringSymbols"`
		EmotionalTrends  *[]string `json:"emotionalTrends"`
		Recommendations  *[]string `json:"recommendations"`
	}
	err = decodeResponse(raw, &resp)
	if err == nil && (resp.RecurringSymbols == nil || resp.EmotionalTrends == nil || resp.Recommendations == nil) {
		err = errors.New("missing required keys")
	}
	if err != nil {
		a.fallback(opPatterns, raw, err)
		return &storage.Pattern{
			RecurringSymbols: []string{},
			Trends:           []string{FallbackTrend},
			Recommendations:  []string{FallbackRecommendation},
			ComputedAt:       a.now(),
		}, nil
	}

	return &storage.Pattern{
		RecurringSymbols: nonNil(*resp.RecurringSymbols),
		Trends:           nonNil(*resp.EmotionalTrends),
		Recommendations:  nonNil(*resp.Recommendations),
		ComputedAt:       a.now(),
	}, nil
}

// Interpret reads a single dream. When the reply cannot be decoded the raw
// text becomes the psychological analysis.
func (a *Analyzer) Interpret(ctx context.Context, body string, mood storage.Mood) (*Interpretation, error) {
	const op = "insight.Interpret"

	if strings.TrimSpace(body) == "" {
		return nil, apperror.Validation(op, "nothing to interpret: the dream text is empty")
	}

	raw, err := a.call(ctx, op, opInterpret, interpretPrompt(body, mood, a.opts.Style))
	if err != nil {
		return nil, err
	}

	var resp struct {
		PsychologicalAnalysis *string   `json:"psychologicalAnalysis"`
		SymbolicMeaning       *string   `json:"symbolicMeaning"`
		CulturalContext       *string   `json:"culturalContext"`
		PossibleMeanings      *[]string `json:"possibleMeanings"`
	}
	err = decodeResponse(raw, &resp)
	if err == nil && (resp.PsychologicalAnalysis == nil || resp.SymbolicMeaning == nil ||
		resp.CulturalContext == nil || resp.PossibleMeanings == nil) {
		err = errors.New("missing required keys")
	}
	if err != nil {
		a.fallback(opInterpret, raw, err)
		return &Interpretation{
			PsychologicalAnalysis: strings.TrimSpace(raw),
			SymbolicMeaning:       FallbackSymbolic,
			CulturalContext:       FallbackCultural,
			PossibleMeanings:      []string{},
		}, nil
	}

	return &Interpretation{
		PsychologicalAnalysis: *resp.PsychologicalAnalysis,
		SymbolicMeaning:       *resp.SymbolicMeaning,
		CulturalContext:       *resp.CulturalContext,
		PossibleMeanings:      nonNil(*resp.PossibleMeanings),
	}, nil
}

// ExtractSymbols lists the key symbols of a dream. Items missing a name,
// category or meaning are dropped; an undecodable reply yields no symbols.
func (a *Analyzer) ExtractSymbols(ctx context.Context, body string) ([]ExtractedSymbol, error) {
	const op = "insight.ExtractSymbols"

	if strings.TrimSpace(body) == "" {
		return []ExtractedSymbol{}, nil
	}

	raw, err := a.call(ctx, op, opSymbols, symbolPrompt(body))
	if err != nil {
		return nil, err
	}

	var items []struct {
		Name     *string `json:"name"`
		Category *string `json:"category"`
		Meaning  *string `json:"meaning"`
	}
	if err := decodeResponse(raw, &items); err != nil {
		a.fallback(opSymbols, raw, err)
		return []ExtractedSymbol{}, nil
	}

	out := make([]ExtractedSymbol, 0, len(items))
	for _, it := range items {
		if it.Name == nil || it.Category == nil || it.Meaning == nil || strings.TrimSpace(*it.Name) == "" {
			a.logger.Debug("incomplete symbol skipped", zap.Any("name", it.Name))
			continue
		}
		out = append(out, ExtractedSymbol{
			Name:     strings.TrimSpace(*it.Name),
			Category: strings.ToLower(strings.TrimSpace(*it.Category)),
			Meaning:  strings.TrimSpace(*it.Meaning),
		})
	}
	return out, nil
}

// Recommendations asks for advice based on a pattern summary. An
// undecodable reply yields the pattern's own recommendations.
func (a *Analyzer) Recommendations(ctx context.Context, p storage.Pattern) ([]string, error) {
	const op = "insight.Recommendations"

	raw, err := a.call(ctx, op, opRecommendations, recommendationPrompt(p))
	if err != nil {
		return nil, err
	}

	var recs []string
	if err := decodeResponse(raw, &recs); err != nil || recs == nil {
		if err == nil {
			err = errors.New("null recommendations")
		}
		a.fallback(opRecommendations, raw, err)
		return nonNil(p.Recommendations), nil
	}
	return recs, nil
}

// call performs one guarded, time-bounded generator request.
func (a *Analyzer) call(ctx context.Context, op, operation, prompt string) (string, error) {
	if a.gen == nil {
		return "", apperror.ServiceUnavailable(op, nil)
	}
	if !a.guard.TryAcquire(1) {
		return "", apperror.Busy(op)
	}
	defer a.guard.Release(1)

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	a.logger.Debug("model request", zap.String("operation", operation), zap.Int("prompt_chars", len(prompt)))
	raw, err := a.gen.Generate(ctx, prompt)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		a.metrics.recordRequest(operation, "ok", elapsed)
		return raw, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		a.metrics.recordRequest(operation, "timeout", elapsed)
		a.logger.Warn("model request timed out", zap.String("operation", operation), zap.Duration("timeout", a.opts.Timeout))
		return "", apperror.ServiceTimeout(op, err)
	case errors.Is(err, context.Canceled):
		a.metrics.recordRequest(operation, "canceled", elapsed)
		return "", fmt.Errorf("%s: %w", op, err)
	default:
		a.metrics.recordRequest(operation, "error", elapsed)
		a.logger.Warn("model request failed", zap.String("operation", operation), zap.Error(err))
		return "", apperror.ServiceUnavailable(op, err)
	}
}

func (a *Analyzer) fallback(operation, raw string, err error) {
	a.metrics.recordFallback(operation)
	a.logger.Warn("model response not decodable, using placeholder",
		zap.String("operation", operation),
		zap.Error(apperror.ResponseDecode("insight."+operation, err)),
		zap.String("response", excerpt(raw, 200)),
	)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
