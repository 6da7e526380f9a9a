// Package drafting turns a parent's email and the teacher's notes into a
// personality-tailored reply by way of the generation provider.
package drafting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/parentreply/internal/anthropic"
	"github.com/kalambet/parentreply/internal/personality"
	"github.com/kalambet/parentreply/internal/prompt"
	"github.com/kalambet/parentreply/internal/storage"
)

// Request is a single draft request.
type Request struct {
	ParentType       string `json:"parentType"`
	EmailContext     string `json:"emailContext"`
	SituationContext string `json:"situationContext"`
}

// Draft is a generated reply.
type Draft struct {
	ID           string
	Email        string
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Provider is the subset of the Anthropic client the drafter needs.
type Provider interface {
	CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

// Recorder persists draft attempts. *storage.Store satisfies it.
type Recorder interface {
	SaveDraft(ctx context.Context, d storage.Draft) error
}

// Options tunes the provider request. Zero values fall back to the
// anthropic package defaults.
type Options struct {
	Model     string
	MaxTokens int
	// Recorder is optional; nil disables history.
	Recorder Recorder
}

// Drafter validates requests, renders the prompt and calls the provider.
type Drafter struct {
	provider  Provider
	model     string
	maxTokens int
	recorder  Recorder
	now       func() time.Time
}

// New returns a Drafter backed by p.
func New(p Provider, opts Options) *Drafter {
	d := &Drafter{
		provider:  p,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		recorder:  opts.Recorder,
		now:       time.Now,
	}
	if d.model == "" {
		d.model = anthropic.DefaultModel
	}
	if d.maxTokens <= 0 {
		d.maxTokens = anthropic.DefaultMaxTokens
	}
	return d
}

// Model returns the model identifier sent to the provider.
func (d *Drafter) Model() string { return d.model }

// Validate checks that every field is present and that the parent type is
// known. It returns the resolved personality profile.
func Validate(req Request) (personality.Profile, error) {
	if isBlank(req.ParentType) || isBlank(req.EmailContext) || isBlank(req.SituationContext) {
		return personality.Profile{}, ErrMissingFields
	}
	p, err := personality.Lookup(req.ParentType)
	if err != nil {
		return personality.Profile{}, fmt.Errorf("%w: %q", ErrUnknownParentType, req.ParentType)
	}
	return p, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// BuildRequest renders the provider request for a validated profile.
func (d *Drafter) BuildRequest(req Request, p personality.Profile) anthropic.MessageRequest {
	text := prompt.Build(prompt.Input{
		ParentType:       p.Name,
		Instruction:      p.Instruction,
		EmailContext:     req.EmailContext,
		SituationContext: req.SituationContext,
	})
	return anthropic.MessageRequest{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: text}},
	}
}

// Draft produces a reply for req. Validation failures return before any
// provider call; otherwise exactly one provider call is made.
func (d *Drafter) Draft(ctx context.Context, req Request) (Draft, error) {
	p, err := Validate(req)
	if err != nil {
		return Draft{}, err
	}

	id := uuid.New().String()
	start := d.now()
	resp, err := d.provider.CreateMessage(ctx, d.BuildRequest(req, p))
	elapsed := d.now().Sub(start)

	if err != nil {
		err = classify(err)
		d.record(ctx, failedRecord(id, start, req, p, d.model, elapsed, err))
		return Draft{}, err
	}

	text, ok := resp.Text()
	if !ok {
		d.record(ctx, failedRecord(id, start, req, p, d.model, elapsed, ErrEmptyCompletion))
		return Draft{}, ErrEmptyCompletion
	}

	model := resp.Model
	if model == "" {
		model = d.model
	}
	out := Draft{
		ID:           id,
		Email:        text,
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Duration:     elapsed,
	}
	d.record(ctx, storage.Draft{
		ID:               id,
		CreatedAt:        start,
		ParentType:       p.Name,
		EmailContext:     req.EmailContext,
		SituationContext: req.SituationContext,
		Model:            model,
		Email:            text,
		Status:           storage.StatusCompleted,
		InputTokens:      out.InputTokens,
		OutputTokens:     out.OutputTokens,
		DurationMs:       elapsed.Milliseconds(),
	})
	return out, nil
}

func failedRecord(id string, start time.Time, req Request, p personality.Profile, model string, elapsed time.Duration, err error) storage.Draft {
	rec := storage.Draft{
		ID:               id,
		CreatedAt:        start,
		ParentType:       p.Name,
		EmailContext:     req.EmailContext,
		SituationContext: req.SituationContext,
		Model:            model,
		Status:           storage.StatusFailed,
		Error:            err.Error(),
		DurationMs:       elapsed.Milliseconds(),
	}
	// Provider bodies stay in the logs; the record keeps only the status.
	var pe *ProviderError
	if errors.As(err, &pe) {
		rec.StatusCode = pe.StatusCode
		rec.Error = "provider error"
		if pe.StatusCode == 0 {
			rec.Error = "provider unreachable"
		}
	}
	return rec
}

func (d *Drafter) record(ctx context.Context, rec storage.Draft) {
	if d.recorder == nil {
		return
	}
	// Record even when the caller has gone away.
	if err := d.recorder.SaveDraft(context.WithoutCancel(ctx), rec); err != nil {
		slog.Warn("recording draft failed", "id", rec.ID, "error", err)
	}
}
