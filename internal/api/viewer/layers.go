package viewer

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/benatfroemming/mapping-tool/internal/app"
	"github.com/benatfroemming/mapping-tool/internal/humastar"
	"github.com/benatfroemming/mapping-tool/internal/ingest"
	"github.com/benatfroemming/mapping-tool/internal/templates"
)

// LayerHandler handles sidebar actions. The resulting state reaches every
// viewer through the event stream; responses only carry feedback signals.
type LayerHandler struct {
	humastar.Handler
	ctrl *app.Controller
}

// NewLayerHandler creates a layer handler.
func NewLayerHandler(ctrl *app.Controller, renderer *templates.Renderer) *LayerHandler {
	return &LayerHandler{Handler: humastar.Handler{Renderer: renderer}, ctrl: ctrl}
}

func (h *LayerHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/viewer/loaded", h.Loaded, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/layers/{id}/focus", h.Focus, huma.OperationTags("viewer"))
	huma.Delete(api, "/api/v1/viewer/layers/{id}", h.Delete, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/layers/{id}/attribute", h.Attribute, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/order", h.Order, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/upload", h.Upload, huma.OperationTags("viewer"))
}

type LayerIDInput struct {
	ID string `path:"id" doc:"Layer id"`
}

type AttributeInput struct {
	LayerIDInput
	humastar.SignalsInput
}

type UploadInput struct {
	RawBody multipart.Form
}

// Loaded is posted by the browser once its map has finished loading.
func (h *LayerHandler) Loaded(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if err := h.ctrl.MapLoaded(); err != nil {
			sse.Error("Map sync failed: " + err.Error())
		}
	}), nil
}

func (h *LayerHandler) Focus(ctx context.Context, input *LayerIDInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if err := h.ctrl.Focus(input.ID); err != nil {
			sse.Error(err.Error())
		}
	}), nil
}

func (h *LayerHandler) Delete(ctx context.Context, input *LayerIDInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if err := h.ctrl.RemoveLayer(input.ID); err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Success("Layer removed")
	}), nil
}

func (h *LayerHandler) Attribute(ctx context.Context, input *AttributeInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("attribute") {
		return nil, huma.Error400BadRequest("attribute signal is required")
	}
	attr := signals.String("attribute")

	return h.Stream(func(sse humastar.SSE) {
		if _, err := h.ctrl.SelectAttribute(input.ID, attr); err != nil {
			sse.Error(err.Error())
			// put the dropdown back on the stored attribute
			if rec, ok := h.ctrl.Layer(input.ID); ok {
				card := layerCard(&h.Handler, rec, focusedID(h.ctrl))
				sse.Replace(h.Render("layer-card", card), "#layer-"+rec.ID)
			}
		}
	}), nil
}

func (h *LayerHandler) Order(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	order := signals.Strings("order")

	return h.Stream(func(sse humastar.SSE) {
		if err := h.ctrl.Reorder(order); err != nil {
			sse.Error(err.Error())
			// resync the client's order with the store
			ids := []string{}
			for _, rec := range h.ctrl.Layers() {
				ids = append(ids, rec.ID)
			}
			sse.Signals(map[string]any{"order": ids})
		}
	}), nil
}

func (h *LayerHandler) Upload(ctx context.Context, input *UploadInput) (*huma.StreamResponse, error) {
	headers := input.RawBody.File["files"]

	return h.Stream(func(sse humastar.SSE) {
		if len(headers) == 0 {
			sse.Error("No file provided")
			return
		}
		files := make([]ingest.File, 0, len(headers))
		for _, fh := range headers {
			files = append(files, ingest.FromMultipart(fh))
		}

		report := h.ctrl.Ingest(files)
		if len(report.Alerts) > 0 {
			sse.Error(alertMessage(report.Alerts))
		}
		if n := len(report.Added); n > 0 {
			sse.Success(fmt.Sprintf("Loaded %d layer(s)", n))
		}
	}), nil
}

func alertMessage(alerts []ingest.Alert) string {
	parts := make([]string, len(alerts))
	for i, a := range alerts {
		parts[i] = a.File + ": " + a.Message
	}
	return "Failed to load " + strings.Join(parts, "; ")
}
