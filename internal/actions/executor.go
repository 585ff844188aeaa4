// Package actions is the only path from the AI engine to the business
// store. Reads run immediately; deletes and destructive raw queries refuse
// to mutate anything unless called with confirmed set.
package actions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Executor runs read and write actions against a store.
type Executor struct {
	store    store.Store
	validate *validator.Validate
	now      func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the clock used to resolve "today" and "yesterday".
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an executor over s.
func New(s store.Store, opts ...Option) *Executor {
	e := &Executor{
		store:    s,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ── Results ─────────────────────────────────────────────────

var errValidation = errors.New("invalid input")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errValidation, fmt.Sprintf(format, args...))
}

func ok(action, message string, data interface{}) models.ActionResult {
	return models.ActionResult{Success: true, Action: action, Message: message, Data: data}
}

// fail classifies err into the result taxonomy. Store messages are kept.
func fail(action, what string, err error) models.ActionResult {
	res := models.ActionResult{Action: action}
	var verrs validator.ValidationErrors
	switch {
	case store.IsNotFound(err):
		res.ErrorKind = models.ErrorNotFound
		res.Message = what + " not found"
		return res
	case errors.As(err, &verrs):
		res.ErrorKind = models.ErrorValidation
		res.Message = describeValidation(verrs)
		return res
	case errors.Is(err, errValidation), errors.Is(err, store.ErrInvalidField):
		res.ErrorKind = models.ErrorValidation
	default:
		res.ErrorKind = models.ErrorStore
		log.Warn().Err(err).Str("action", action).Msg("Store error")
	}
	res.Message = err.Error()
	return res
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", e.Field(), e.Tag(), e.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", e.Field(), e.Tag()))
		}
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", name)
	}
	return nil
}
