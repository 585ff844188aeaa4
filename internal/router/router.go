// Package router implements the provider router.
//
// The router holds an ordered list of language-model providers, sends each
// chat request to the best candidate, takes rate-limited providers out of
// rotation for a cooldown window, enforces per-provider daily quotas, and
// fails over to the next candidate transparently. A provider can also be
// pinned, in which case it is the only one attempted.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/binarjoin/agent-engine/internal/telemetry"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultCooldown is how long a rate-limited provider stays out of rotation.
const DefaultCooldown = 5 * time.Minute

// Driver sends one chat request to a provider backend.
type Driver interface {
	Kind() models.ProviderKind
	Send(ctx context.Context, model string, messages []models.ChatMessage, system string) (*models.Completion, error)
}

// ProviderSpec configures one provider at construction time.
type ProviderSpec struct {
	Driver     Driver
	Model      string
	Priority   int // lower is tried first
	DailyLimit int
}

// provider is the mutable runtime state of one configured provider.
type provider struct {
	kind       models.ProviderKind
	model      string
	priority   int
	dailyLimit int
	driver     Driver

	available   bool
	lastError   string
	lastErrorAt time.Time
	dailyUsage  int
}

// Option customises a ModelRouter.
type Option func(*ModelRouter)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(mr *ModelRouter) { mr.cooldown = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(mr *ModelRouter) { mr.now = now }
}

// ModelRouter routes chat requests across providers.
//
// All counters are guarded by mu, which is released while a provider call
// is in flight. Quota accounting is therefore best-effort: two concurrent
// requests can both pass the limit check for the same provider.
type ModelRouter struct {
	mu        sync.Mutex
	providers []*provider // sorted by priority
	cursor    int
	lastReset string // UTC date, YYYY-MM-DD
	selected  string // "" means automatic routing
	cooldown  time.Duration
	now       func() time.Time
}

// NewModelRouter builds a router from specs. A malformed spec is an error;
// an empty list is not, but every Chat will then fail with ErrNoProviders.
func NewModelRouter(specs []ProviderSpec, opts ...Option) (*ModelRouter, error) {
	mr := &ModelRouter{cooldown: DefaultCooldown, now: time.Now}
	for _, opt := range opts {
		opt(mr)
	}

	seen := make(map[models.ProviderKind]bool)
	for i, s := range specs {
		if s.Driver == nil {
			return nil, fmt.Errorf("provider %d: driver is required", i)
		}
		kind := s.Driver.Kind()
		if !kind.Valid() {
			return nil, fmt.Errorf("provider %d: unknown kind %q", i, kind)
		}
		if seen[kind] {
			return nil, fmt.Errorf("provider %s configured twice", kind)
		}
		if s.Model == "" {
			return nil, fmt.Errorf("provider %s: model is required", kind)
		}
		if s.DailyLimit <= 0 {
			return nil, fmt.Errorf("provider %s: daily limit must be positive", kind)
		}
		seen[kind] = true
		mr.providers = append(mr.providers, &provider{
			kind:       kind,
			model:      s.Model,
			priority:   s.Priority,
			dailyLimit: s.DailyLimit,
			driver:     s.Driver,
			available:  true,
		})
	}
	sort.SliceStable(mr.providers, func(i, j int) bool {
		return mr.providers[i].priority < mr.providers[j].priority
	})
	mr.lastReset = mr.today()

	if len(mr.providers) == 0 {
		log.Warn().Msg("No AI providers configured")
	} else {
		order := make([]string, len(mr.providers))
		for i, p := range mr.providers {
			order[i] = string(p.kind) + "/" + p.model
		}
		log.Info().Str("order", strings.Join(order, " -> ")).Msg("Provider router initialized")
	}
	return mr, nil
}

func (mr *ModelRouter) today() string {
	return mr.now().UTC().Format("2006-01-02")
}

// Chat sends messages to a provider and returns its reply.
func (mr *ModelRouter) Chat(ctx context.Context, messages []models.ChatMessage, system string) (*models.Completion, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "router.chat")
	defer span.End()

	comp, err := mr.chat(ctx, messages, system)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ai.provider", string(comp.Provider)),
		attribute.String("ai.model", comp.Model),
		attribute.Int("ai.tokens", comp.TokensUsed),
	)
	return comp, nil
}

func (mr *ModelRouter) chat(ctx context.Context, messages []models.ChatMessage, system string) (*models.Completion, error) {
	mr.mu.Lock()
	mr.resetIfNewDayLocked()
	if len(mr.providers) == 0 {
		mr.mu.Unlock()
		return nil, ErrNoProviders
	}
	if p, model := mr.pinnedLocked(); p != nil {
		mr.mu.Unlock()
		return mr.callPinned(ctx, p, model, messages, system)
	}
	n := len(mr.providers)
	start := mr.cursor
	mr.mu.Unlock()

	var lastErr error
	attempted := 0
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		p := mr.providers[idx]

		mr.mu.Lock()
		if usage := p.dailyUsage; usage >= p.dailyLimit {
			p.available = false
			mr.mu.Unlock()
			log.Warn().
				Str("provider", string(p.kind)).
				Int("usage", usage).
				Int("limit", p.dailyLimit).
				Msg("Daily limit reached, skipping provider")
			continue
		}
		if !p.available {
			if mr.now().Sub(p.lastErrorAt) < mr.cooldown {
				mr.mu.Unlock()
				continue
			}
			p.available = true
			p.lastError = ""
			log.Info().Str("provider", string(p.kind)).Msg("Cooldown elapsed, provider back in rotation")
		}
		model := p.model
		mr.mu.Unlock()

		attempted++
		comp, err := p.driver.Send(ctx, model, messages, system)

		mr.mu.Lock()
		if err == nil {
			p.dailyUsage++
			mr.cursor = idx
			mr.mu.Unlock()
			return stamp(comp, p.kind, model), nil
		}
		quota := mr.recordFailureLocked(p, err)
		mr.mu.Unlock()

		ev := log.Warn().Str("provider", string(p.kind)).Err(err)
		if quota {
			ev.Msg("Provider rate limited, failing over")
		} else {
			ev.Msg("Provider call failed, trying next")
		}
		lastErr = err
	}

	return nil, &ExhaustedError{Attempted: attempted, Last: lastErr}
}

// callPinned attempts only the pinned provider and propagates its error.
func (mr *ModelRouter) callPinned(ctx context.Context, p *provider, model string, messages []models.ChatMessage, system string) (*models.Completion, error) {
	comp, err := p.driver.Send(ctx, model, messages, system)

	mr.mu.Lock()
	defer mr.mu.Unlock()
	if err != nil {
		mr.recordFailureLocked(p, err)
		log.Error().Str("provider", string(p.kind)).Str("model", model).Err(err).Msg("Pinned provider failed")
		return nil, err
	}
	p.dailyUsage++
	return stamp(comp, p.kind, model), nil
}

func (mr *ModelRouter) recordFailureLocked(p *provider, err error) bool {
	p.lastError = err.Error()
	p.lastErrorAt = mr.now()
	if IsQuotaError(err) {
		p.available = false
		return true
	}
	return false
}

func stamp(comp *models.Completion, kind models.ProviderKind, model string) *models.Completion {
	if comp == nil {
		comp = &models.Completion{}
	}
	comp.Provider = kind
	if comp.Model == "" {
		comp.Model = model
	}
	return comp
}

// pinnedLocked resolves the pin to a configured provider. A pin naming a
// provider that is not configured, or a HuggingFace model outside the
// catalogue, yields nil and routing stays automatic.
func (mr *ModelRouter) pinnedLocked() (*provider, string) {
	if mr.selected == "" {
		return nil, ""
	}
	kind, model, _ := strings.Cut(mr.selected, "/")
	p := mr.findLocked(models.ProviderKind(kind))
	if p == nil {
		return nil, ""
	}
	if p.kind == models.ProviderHuggingFace && model != "" {
		if !IsHuggingFaceModel(model) {
			return nil, ""
		}
		return p, model
	}
	return p, p.model
}

func (mr *ModelRouter) findLocked(kind models.ProviderKind) *provider {
	for _, p := range mr.providers {
		if p.kind == kind {
			return p
		}
	}
	return nil
}

func (mr *ModelRouter) resetIfNewDayLocked() {
	if today := mr.today(); today != mr.lastReset {
		mr.resetLocked()
		mr.lastReset = today
		log.Info().Str("date", today).Msg("New day, provider usage reset")
	}
}

func (mr *ModelRouter) resetLocked() {
	for _, p := range mr.providers {
		p.dailyUsage = 0
		p.available = true
		p.lastError = ""
		p.lastErrorAt = time.Time{}
	}
}

// ── Introspection & control ─────────────────────────────────

// ResetDailyUsage zeroes every counter and clears error state.
func (mr *ModelRouter) ResetDailyUsage() {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.resetLocked()
	mr.lastReset = mr.today()
	log.Info().Msg("Provider daily usage reset")
}

// HasAvailable reports whether any provider is under quota and either in
// rotation or past its cooldown. It does not restore cooled-down providers;
// the next Chat that reaches them does.
func (mr *ModelRouter) HasAvailable() bool {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.resetIfNewDayLocked()
	now := mr.now()
	for _, p := range mr.providers {
		if p.dailyUsage >= p.dailyLimit {
			continue
		}
		if p.available || now.Sub(p.lastErrorAt) >= mr.cooldown {
			return true
		}
	}
	return false
}

// Status returns a snapshot of every provider, in priority order.
func (mr *ModelRouter) Status() []models.ProviderStatus {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	pinned, _ := mr.pinnedLocked()
	out := make([]models.ProviderStatus, len(mr.providers))
	for i, p := range mr.providers {
		st := models.ProviderStatus{
			Kind:       p.kind,
			Model:      p.model,
			Priority:   p.priority,
			Available:  p.available,
			LastError:  p.lastError,
			DailyUsage: p.dailyUsage,
			DailyLimit: p.dailyLimit,
			Selected:   p == pinned,
		}
		if !p.lastErrorAt.IsZero() {
			t := p.lastErrorAt
			st.LastErrorAt = &t
		}
		out[i] = st
	}
	return out
}

// Models lists every selectable provider/model pair. The HuggingFace
// provider contributes one entry per catalogue model.
func (mr *ModelRouter) Models() []models.ModelOption {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	var out []models.ModelOption
	for _, p := range mr.providers {
		if p.kind == models.ProviderHuggingFace {
			for _, m := range HuggingFaceModels() {
				out = append(out, models.ModelOption{
					Key:       string(p.kind) + "/" + m.Key,
					Provider:  p.kind,
					Model:     m.Key,
					Label:     m.Name,
					Available: p.available,
				})
			}
			continue
		}
		out = append(out, models.ModelOption{
			Key:       string(p.kind) + "/" + p.model,
			Provider:  p.kind,
			Model:     p.model,
			Label:     string(p.kind) + " " + p.model,
			Available: p.available,
		})
	}
	return out
}

// SetSelected pins routing to "provider" or "provider/model". An empty
// string or "auto" restores automatic routing.
func (mr *ModelRouter) SetSelected(key string) {
	if key == "auto" {
		key = ""
	}
	mr.mu.Lock()
	mr.selected = key
	mr.mu.Unlock()
	if key == "" {
		key = "auto"
	}
	log.Info().Str("selected", key).Msg("Provider selection changed")
}

// Selected returns the current pin, or "" for automatic routing.
func (mr *ModelRouter) Selected() string {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return mr.selected
}

// SwitchHuggingFaceModel changes the default HuggingFace model and puts the
// provider back in rotation. It reports false for an unknown key or when
// HuggingFace is not configured.
func (mr *ModelRouter) SwitchHuggingFaceModel(key string) bool {
	if !IsHuggingFaceModel(key) {
		return false
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	p := mr.findLocked(models.ProviderHuggingFace)
	if p == nil {
		return false
	}
	p.model = key
	p.available = true
	p.lastError = ""
	log.Info().Str("model", key).Msg("Switched HuggingFace model")
	return true
}
