// Package explain narrates calendar plans as short bullet points. The
// template explainer is deterministic and always available; the OpenRouter
// explainer asks a hosted model and falls back to the template output when
// the call fails.
package explain

import (
	"context"

	"paycal/internal/core"
)

const maxBullets = 3

// Explainer narrates a calendar plan for a payload.
type Explainer interface {
	Explain(ctx context.Context, p *core.Payload, plan *core.CalendarPlan, focus core.Focus) ([]string, error)
}

// Template returns the plan's own explanation lines, or a fixed set of
// bullets when the plan carries none. It never fails.
type Template struct{}

func NewTemplate() *Template {
	return &Template{}
}

func (t *Template) Explain(_ context.Context, _ *core.Payload, plan *core.CalendarPlan, _ core.Focus) ([]string, error) {
	if plan != nil && len(plan.Explain) > 0 {
		bullets := plan.Explain
		if len(bullets) > maxBullets {
			bullets = bullets[:maxBullets]
		}
		return bullets, nil
	}
	return []string{
		"Smoothed big bills against expected deposits.",
		"Kept buffer above policy minimum while honoring locked payments.",
		"Targeted card utilization improvements with staged paydowns.",
	}, nil
}

// Fallback wraps a primary explainer with a secondary that takes over when
// the primary fails or produces nothing.
type Fallback struct {
	primary   Explainer
	secondary Explainer
}

func NewFallback(primary, secondary Explainer) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Explain(ctx context.Context, p *core.Payload, plan *core.CalendarPlan, focus core.Focus) ([]string, error) {
	bullets, err := f.primary.Explain(ctx, p, plan, focus)
	if err == nil && len(bullets) > 0 {
		return bullets, nil
	}
	return f.secondary.Explain(ctx, p, plan, focus)
}
