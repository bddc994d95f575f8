// Package humastar bridges Huma operations with Datastar server-sent events.
//
// Handlers embed [Handler] to get a fragment renderer and [Handler.Stream],
// which hands the operation body an [SSE] helper bound to the response.
package humastar

import (
	"bytes"
	"encoding/json"

	"github.com/apex/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/pkg/errors"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/benatfroemming/mapping-tool/internal/templates"
)

// Handler is an embeddable base for Huma handlers that answer with Datastar
// SSE responses.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// Render renders one fragment, logging template failures.
func (h *Handler) Render(tmpl string, data any) string {
	html, err := h.Renderer.Render(tmpl, data)
	if err != nil {
		log.WithField("template", tmpl).WithError(err).Error("render failed")
	}
	return html
}

// RenderList renders items with a named template, or an empty state if none.
func (h *Handler) RenderList(tmpl string, items []any, emptyTitle, emptyMsg string) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		h.renderTo(&buf, "empty-state", map[string]string{"Title": emptyTitle, "Message": emptyMsg})
		return buf.String()
	}
	for _, item := range items {
		h.renderTo(&buf, tmpl, item)
	}
	return buf.String()
}

// RenderSelect renders <option> elements, a placeholder first.
func (h *Handler) RenderSelect(placeholder string, options []SelectOptionData) string {
	var buf bytes.Buffer
	h.renderTo(&buf, "select-option", SelectOptionData{Label: placeholder})
	for _, opt := range options {
		h.renderTo(&buf, "select-option", opt)
	}
	return buf.String()
}

func (h *Handler) renderTo(buf *bytes.Buffer, tmpl string, data any) {
	if err := h.Renderer.RenderToBuffer(buf, tmpl, data); err != nil {
		log.WithField("template", tmpl).WithError(err).Error("render failed")
	}
}

// SelectOptionData holds data for one <option>.
type SelectOptionData struct {
	Value    string
	Label    string
	Selected bool
}

// SSE wraps a Datastar generator with the patterns the UI relies on.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the inner HTML at a CSS selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Replace replaces the outer HTML at a CSS selector.
func (s SSE) Replace(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeOuter(),
	)
}

// Error sends an error signal to the UI.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Success sends a success signal to the UI.
func (s SSE) Success(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"success": msg})
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Call runs fn(arg) in the browser, arg encoded as JSON.
func (s SSE) Call(fn string, arg any) error {
	data, err := json.Marshal(arg)
	if err != nil {
		return errors.Wrapf(err, "encoding %s argument", fn)
	}
	return s.ExecuteScript(fn + "(" + string(data) + ")")
}

// Signals provides typed access to the flat JSON object Datastar posts.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body. An empty body
// yields no signals.
func ParseSignals(body []byte) (Signals, error) {
	signals := Signals{}
	if len(bytes.TrimSpace(body)) == 0 {
		return signals, nil
	}
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal value, or "" if absent.
func (s Signals) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Strings returns a list signal, keeping only string elements.
func (s Signals) Strings(key string) []string {
	raw, ok := s[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// Has reports whether the signal key exists, even if zero-valued.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// EmptyInput is a shared input struct for handlers with no parameters.
type EmptyInput struct{}

// SignalsInput is an input struct for handlers that receive Datastar signals.
type SignalsInput struct {
	RawBody []byte
}

// MustParse parses signals or returns a Huma 400 error.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}
