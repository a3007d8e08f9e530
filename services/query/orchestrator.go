// Package query runs the grounded question-answering pipeline.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/internal/observability"
	"github.com/upb/grounded-qa/internal/shared"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/services"
	"github.com/upb/grounded-qa/services/generation"
	"github.com/upb/grounded-qa/services/history"
	"github.com/upb/grounded-qa/services/scoring"
	"github.com/upb/grounded-qa/services/validation"
	"go.uber.org/zap"
)

// Messages returned to the caller on non-success outcomes
const (
	msgMissingSelection   = "No selected text provided for selection-based query."
	msgInsufficientBook   = "I cannot answer this question based on the available book content."
	msgInsufficientSelect = "The selected text does not contain enough information to answer your question."
	msgNotGrounded        = "I cannot provide an answer that is fully grounded in the book content."
	msgErrorPrefix        = "An error occurred while processing your request:"
)

// EvidenceSource finds evidence for a question
type EvidenceSource interface {
	Search(ctx context.Context, query string, topK int) models.Evidence
	Select(selection string) models.Evidence
}

// Options tunes the orchestrator
type Options struct {
	TopK            int
	MaxQueryLength  int
	Deadline        time.Duration
	GroundingPolicy string
	Params          generation.Params
}

// OptionsFromConfig reads pipeline and generation settings
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopK:            cfg.Pipeline.TopK,
		MaxQueryLength:  cfg.Pipeline.MaxQueryLength,
		Deadline:        cfg.Pipeline.Deadline,
		GroundingPolicy: cfg.Pipeline.GroundingPolicy,
		Params:          generation.ParamsFromConfig(cfg.Generation),
	}
}

// Orchestrator sequences retrieval, the sufficiency gate, generation, the
// grounding check and scoring for each query. It keeps no per-request state.
type Orchestrator struct {
	evidence  EvidenceSource
	validator *validation.ContextValidator
	generator generation.Generator
	scorer    *scoring.ConfidenceScorer
	recorder  history.Recorder
	metrics   *observability.PipelineMetrics
	opts      Options
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator. recorder and metrics may be nil.
func NewOrchestrator(
	evidence EvidenceSource,
	validator *validation.ContextValidator,
	generator generation.Generator,
	scorer *scoring.ConfidenceScorer,
	recorder history.Recorder,
	metrics *observability.PipelineMetrics,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	if recorder == nil {
		recorder = history.NopRecorder{}
	}
	if metrics == nil {
		metrics = observability.NewPipelineMetrics()
	}
	return &Orchestrator{
		evidence:  evidence,
		validator: validator,
		generator: generator,
		scorer:    scorer,
		recorder:  recorder,
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
	}
}

// ValidateQuery rejects caller input errors before a run starts
func (o *Orchestrator) ValidateQuery(q models.Query) error {
	length := len([]rune(strings.TrimSpace(q.Text)))
	if length == 0 {
		return services.ErrEmptyQuery
	}
	if o.opts.MaxQueryLength > 0 && length > o.opts.MaxQueryLength {
		return services.NewQueryTooLongError(o.opts.MaxQueryLength, length)
	}
	if !q.Mode.Valid() {
		return services.NewInvalidQueryModeError(string(q.Mode))
	}
	if q.IsSelection() && strings.TrimSpace(q.Selection) == "" {
		return services.ErrMissingSelection
	}
	return nil
}

// run is the state of one pipeline invocation
type run struct {
	id       uuid.UUID
	state    State
	query    models.Query
	started  time.Time
	log      *models.QueryLog
	logger   *zap.Logger
	evidence models.Evidence
}

func (r *run) transition(to State) {
	if !CanTransition(r.state, to) {
		r.logger.Error("illegal pipeline transition",
			zap.String("from", string(r.state)),
			zap.String("to", string(to)))
	}
	r.logger.Debug("pipeline state",
		zap.String("from", string(r.state)),
		zap.String("state", string(to)))
	r.state = to
}

// Process runs one query to a terminal state. It never returns an error:
// every failure inside the pipeline becomes a Response status.
func (o *Orchestrator) Process(ctx context.Context, q models.Query) models.Response {
	id := uuid.New()
	ctx = shared.WithQueryID(ctx, id.String())

	if o.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Deadline)
		defer cancel()
	}

	r := &run{
		id:      id,
		state:   StateStart,
		query:   q,
		started: time.Now(),
		log:     models.NewQueryLog(q),
		logger:  observability.WithContext(ctx, o.logger).With(zap.String("mode", string(q.Mode))),
	}

	resp := o.execute(ctx, r)
	o.finish(r, resp)
	return resp
}

func (o *Orchestrator) execute(ctx context.Context, r *run) models.Response {
	q := r.query

	if !q.Mode.Valid() {
		r.transition(StateErrored)
		return models.NewErrorResponse(r.id, fmt.Sprintf("%s invalid query type: %q", msgErrorPrefix, q.Mode))
	}
	if q.IsSelection() && strings.TrimSpace(q.Selection) == "" {
		r.transition(StateRefused)
		return models.NewRefusedResponse(r.id, msgMissingSelection)
	}
	if err := o.ValidateQuery(q); err != nil {
		r.transition(StateErrored)
		return models.NewErrorResponse(r.id, fmt.Sprintf("%s %s", msgErrorPrefix, err))
	}

	r.transition(StateRetrieving)
	if q.IsSelection() {
		r.evidence = o.evidence.Select(q.Selection)
	} else {
		r.evidence = o.evidence.Search(ctx, q.Text, o.opts.TopK)
	}

	r.transition(StateCheckingSufficiency)
	if resp, refused := o.checkSufficiency(r); refused {
		return resp
	}

	r.transition(StateGenerating)
	prompt, err := generation.BuildPrompt(q.Mode, q.Text, r.evidence)
	if err != nil {
		r.transition(StateErrored)
		return models.NewErrorResponse(r.id, fmt.Sprintf("%s %s", msgErrorPrefix, err))
	}

	text, err := o.generator.Generate(ctx, prompt, o.opts.Params)
	if err != nil {
		r.logger.Error("generation failed", zap.Error(err))
		r.transition(StateErrored)
		return models.NewErrorResponse(r.id, fmt.Sprintf("%s %s", msgErrorPrefix, err))
	}

	r.transition(StateValidatingGrounding)
	grounding := o.validator.CheckGrounding(text, r.evidence)
	r.log.WithGrounding(&grounding)
	if !grounding.Passed {
		o.metrics.RecordGroundingFailure()
		r.logger.Warn("response failed grounding check",
			zap.Float64("overlap_ratio", grounding.OverlapRatio),
			zap.Float64("grounding_score", grounding.GroundingScore),
			zap.Strings("issues", grounding.Issues),
			zap.String("policy", o.opts.GroundingPolicy))

		if o.opts.GroundingPolicy == config.GroundingEnforce {
			r.transition(StateRefused)
			return models.NewRefusedResponse(r.id, msgNotGrounded)
		}
	}

	r.transition(StateScoring)
	confidence := o.scorer.Score(r.evidence)

	sources := []string{}
	if q.IsSelection() {
		sources = []string{models.SelectionSourcePath}
	}

	r.transition(StateDone)
	return models.NewSuccessResponse(r.id, text, sources, confidence)
}

func (o *Orchestrator) checkSufficiency(r *run) (models.Response, bool) {
	if r.query.IsSelection() {
		report := o.validator.CheckSelection(r.query.Text, r.query.Selection)
		if len(report.Issues) > 0 && report.Passed {
			r.logger.Info("selection overlap is low, continuing",
				zap.Float64("overlap_ratio", report.OverlapRatio))
		}
		if !report.Passed {
			r.logger.Warn("selection refused", zap.String("reason", report.Reason))
			r.transition(StateRefused)
			return models.NewRefusedResponse(r.id, msgInsufficientSelect+" "+capitalize(report.Reason)), true
		}
		return models.Response{}, false
	}

	report := o.validator.CheckSufficiency(r.evidence)
	if !report.Passed {
		r.logger.Warn("insufficient context",
			zap.String("reason", report.Reason),
			zap.Int("chunks", len(r.evidence)))
		r.transition(StateRefused)
		return models.NewRefusedResponse(r.id, msgInsufficientBook+" "+capitalize(report.Reason)+"."), true
	}
	return models.Response{}, false
}

// finish records metrics and history for a terminal run
func (o *Orchestrator) finish(r *run, resp models.Response) {
	elapsed := time.Since(r.started)

	r.log.WithEvidence(r.evidence)
	r.log.Complete(resp, elapsed)

	o.metrics.RecordOutcome(string(resp.Status), elapsed)
	if err := o.recorder.Record(r.log); err != nil {
		r.logger.Debug("query log not recorded", zap.Error(err))
	}

	r.logger.Info("query processed",
		zap.String("status", string(resp.Status)),
		zap.String("state", string(r.state)),
		zap.Float64("confidence", resp.Confidence),
		zap.Int("chunks", len(r.evidence)),
		zap.Duration("elapsed", elapsed))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
