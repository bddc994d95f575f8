package viewer

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/benatfroemming/mapping-tool/internal/app"
	"github.com/benatfroemming/mapping-tool/internal/humastar"
	"github.com/benatfroemming/mapping-tool/internal/templates"
)

// SampleHandler lists and loads the sample datasets.
type SampleHandler struct {
	humastar.Handler
	ctrl *app.Controller
}

func NewSampleHandler(ctrl *app.Controller, renderer *templates.Renderer) *SampleHandler {
	return &SampleHandler{Handler: humastar.Handler{Renderer: renderer}, ctrl: ctrl}
}

func (h *SampleHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/viewer/samples", h.List, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/samples/{name}", h.Load, huma.OperationTags("viewer"))
}

type SampleNameInput struct {
	Name string `path:"name" doc:"Sample file name"`
}

func (h *SampleHandler) List(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		samples, err := h.ctrl.Samples()
		if err != nil {
			sse.Error(err.Error())
			return
		}
		items := make([]any, len(samples))
		for i, s := range samples {
			items[i] = SampleCardData{SampleFile: s}
		}
		sse.Patch(h.RenderList("sample-card", items, "No samples", "Put .geojson files in the samples directory"), "#sample-list")
	}), nil
}

func (h *SampleHandler) Load(ctx context.Context, input *SampleNameInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		rec, err := h.ctrl.LoadSample(input.Name)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Success("Loaded " + rec.Name)
	}), nil
}
