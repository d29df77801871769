package triggers

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Handler processes one change event. params holds the values captured by
// the pattern's {name} segments. A returned error means this handler failed;
// it is logged and never affects sibling handlers.
type Handler func(ctx context.Context, ev ChangeEvent, params map[string]string) error

type registration struct {
	name     string
	segments []string
	kind     ChangeKind
	fn       Handler
}

// Router dispatches change events to the handlers registered for their
// (path pattern, change kind). It is stateless: no retries, no ordering, no
// cross-handler transactions.
type Router struct {
	registrations []registration
	logger        *zap.SugaredLogger
}

func NewRouter(logger *zap.SugaredLogger) *Router {
	return &Router{logger: logger}
}

// Register adds a handler for a document path pattern such as
// "leads/{leadId}" or "chats/{chatId}/messages/{messageId}".
func (r *Router) Register(pattern string, kind ChangeKind, name string, fn Handler) {
	r.registrations = append(r.registrations, registration{
		name:     name,
		segments: strings.Split(pattern, "/"),
		kind:     kind,
		fn:       fn,
	})
}

// Dispatch invokes every matching handler. Handler panics and errors are
// contained here; Dispatch reports how many handlers ran.
func (r *Router) Dispatch(ctx context.Context, ev ChangeEvent) int {
	segments := strings.Split(ev.Path, "/")

	invoked := 0
	for _, reg := range r.registrations {
		if reg.kind != ev.Kind {
			continue
		}
		params, ok := match(reg.segments, segments)
		if !ok {
			continue
		}
		invoked++
		r.invoke(ctx, reg, ev, params)
	}
	if invoked == 0 {
		r.logger.Debugw("no handler for change event", "path", ev.Path, "kind", ev.Kind)
	}
	return invoked
}

func (r *Router) invoke(ctx context.Context, reg registration, ev ChangeEvent, params map[string]string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("trigger handler panicked",
				"handler", reg.name, "event_id", ev.EventID, "path", ev.Path, "panic", rec)
		}
	}()
	if err := reg.fn(ctx, ev, params); err != nil {
		r.logger.Errorw("trigger handler failed",
			"handler", reg.name, "event_id", ev.EventID, "path", ev.Path, "error", err)
	}
}

func match(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			params[p[1:len(p)-1]] = segments[i]
			continue
		}
		if p != segments[i] {
			return nil, false
		}
	}
	return params, true
}
