// Package api defines the Huma REST routes of the mapping tool.
package api

import (
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/pkg/errors"

	"github.com/benatfroemming/mapping-tool/internal/app"
	"github.com/benatfroemming/mapping-tool/internal/humastar"
	"github.com/benatfroemming/mapping-tool/internal/ingest"
	"github.com/benatfroemming/mapping-tool/internal/mapsync"
	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/stats"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

// Services holds the dependencies of the REST handlers.
type Services struct {
	Controller *app.Controller
	Map        *mapsync.Mirror
}

// layerActions are offered on every layer response.
var layerActions = []humastar.ActionDef{
	{Rel: "delete", Pattern: "/api/v1/layers/%s", Method: http.MethodDelete, Title: "Remove layer"},
	{Rel: "edit", Pattern: "/api/v1/layers/%s/attribute", Method: http.MethodPut, Title: "Color by attribute"},
	{Rel: "focus", Pattern: "/api/v1/focus?id=%s", Method: http.MethodPut, Title: "Focus layer"},
}

// LayerBody is the REST view of a layer record.
type LayerBody struct {
	ID                string         `json:"id" doc:"Layer id" example:"parks-1760000000000"`
	Name              string         `json:"name" doc:"Source file name" example:"parks.geojson"`
	Attributes        []string       `json:"attributes" doc:"Property names of the first feature, sorted"`
	SelectedAttribute string         `json:"selectedAttribute" doc:"Attribute driving the color, empty for none"`
	ColorMap          style.ColorMap `json:"colorMap,omitempty" doc:"Category colors of a categorical attribute"`
	Features          int            `json:"features" doc:"Number of features"`
	Focused           bool           `json:"focused" doc:"Whether the layer feeds the statistics panel"`
	CreatedAt         time.Time      `json:"createdAt" doc:"Load time"`
}

// Actions implements humastar.Actor.
func (b LayerBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, layerActions)
}

func toLayerBody(r service.Record, focused string) LayerBody {
	attrs := r.Attributes
	if attrs == nil {
		attrs = []string{}
	}
	return LayerBody{
		ID:                r.ID,
		Name:              r.Name,
		Attributes:        attrs,
		SelectedAttribute: r.SelectedAttribute,
		ColorMap:          r.ColorMap,
		Features:          r.FeatureCount(),
		Focused:           r.ID == focused,
		CreatedAt:         r.CreatedAt,
	}
}

// LayersBody lists layers, topmost first.
type LayersBody struct {
	Layers []LayerBody `json:"layers" doc:"Layers, topmost first"`
}

type IDInput struct {
	ID string `path:"id" doc:"Layer id"`
}

type UploadInput struct {
	RawBody multipart.Form
}

type OrderInput struct {
	Body struct {
		Order []string `json:"order" doc:"Every layer id exactly once, topmost first"`
	}
}

type AttributeInput struct {
	IDInput
	Body struct {
		Attribute string `json:"attribute" doc:"Attribute to color by, empty to clear"`
	}
}

type FocusInput struct {
	ID string `query:"id" required:"true" doc:"Layer id to focus"`
}

type SampleInput struct {
	Name string `path:"name" doc:"Sample file name" example:"parks.geojson"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
	Layers  int    `json:"layers" doc:"Loaded layers"`
}

// APIHandler holds the REST handlers.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services) {
	h := NewAPIHandler(svc)
	h.RegisterHealth(api)
	h.RegisterLayers(api)
	h.RegisterPanel(api)
	h.RegisterSamples(api)
	h.RegisterMap(api)
}

func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Register(api, huma.Operation{
		OperationID:   "upload-layers",
		Method:        http.MethodPost,
		Path:          "/api/v1/layers",
		Summary:       "Upload GeoJSON files",
		Description:   "Each file in the `files` field becomes a layer. Failed files are reported and skipped.",
		Tags:          []string{"layers"},
		DefaultStatus: http.StatusCreated,
	}, h.UploadLayers)
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Register(api, huma.Operation{
		OperationID:   "delete-layer",
		Method:        http.MethodDelete,
		Path:          "/api/v1/layers/{id}",
		Summary:       "Remove a layer",
		Description:   "Unknown ids are accepted and change nothing.",
		Tags:          []string{"layers"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteLayer)
	huma.Put(api, "/api/v1/layers/order", h.PutOrder, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/attribute", h.PutAttribute, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/focus", h.PutFocus, huma.OperationTags("layers"))
	huma.Register(api, huma.Operation{
		OperationID:   "clear-focus",
		Method:        http.MethodDelete,
		Path:          "/api/v1/focus",
		Summary:       "Clear the focused layer",
		Tags:          []string{"layers"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteFocus)
}

func (h *APIHandler) RegisterPanel(api huma.API) {
	huma.Get(api, "/api/v1/panel", h.GetPanel, huma.OperationTags("stats"))
}

func (h *APIHandler) RegisterSamples(api huma.API) {
	huma.Get(api, "/api/v1/samples", h.GetSamples, huma.OperationTags("samples"))
	huma.Register(api, huma.Operation{
		OperationID:   "load-sample",
		Method:        http.MethodPost,
		Path:          "/api/v1/samples/{name}",
		Summary:       "Load a sample dataset as a layer",
		Tags:          []string{"samples"},
		DefaultStatus: http.StatusCreated,
	}, h.LoadSample)
}

func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{
		Status: "ok", Version: "1.0.0", Layers: len(h.svc.Controller.Layers()),
	}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body LayersBody }, error) {
	return &struct{ Body LayersBody }{Body: h.layers()}, nil
}

func (h *APIHandler) layers() LayersBody {
	focused := h.focusedID()
	records := h.svc.Controller.Layers()
	out := LayersBody{Layers: make([]LayerBody, 0, len(records))}
	for _, r := range records {
		out.Layers = append(out.Layers, toLayerBody(r, focused))
	}
	return out
}

func (h *APIHandler) focusedID() string {
	if rec, ok := h.svc.Controller.Focused(); ok {
		return rec.ID
	}
	return ""
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*struct{ Body LayerBody }, error) {
	rec, ok := h.svc.Controller.Layer(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found: " + input.ID)
	}
	return &struct{ Body LayerBody }{Body: toLayerBody(rec, h.focusedID())}, nil
}

func (h *APIHandler) UploadLayers(ctx context.Context, input *UploadInput) (*struct{ Body ingest.Report }, error) {
	headers := input.RawBody.File["files"]
	if len(headers) == 0 {
		return nil, huma.Error400BadRequest("no files in the files field")
	}
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, ingest.FromMultipart(fh))
	}
	return &struct{ Body ingest.Report }{Body: h.svc.Controller.Ingest(files)}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*struct{}, error) {
	if err := h.svc.Controller.RemoveLayer(input.ID); err != nil {
		return nil, toHumaError(err)
	}
	return nil, nil
}

func (h *APIHandler) PutOrder(ctx context.Context, input *OrderInput) (*struct{ Body LayersBody }, error) {
	if err := h.svc.Controller.Reorder(input.Body.Order); err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body LayersBody }{Body: h.layers()}, nil
}

func (h *APIHandler) PutAttribute(ctx context.Context, input *AttributeInput) (*struct{ Body style.Style }, error) {
	st, err := h.svc.Controller.SelectAttribute(input.ID, input.Body.Attribute)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body style.Style }{Body: st}, nil
}

func (h *APIHandler) PutFocus(ctx context.Context, input *FocusInput) (*struct{ Body stats.Panel }, error) {
	if err := h.svc.Controller.Focus(input.ID); err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body stats.Panel }{Body: h.svc.Controller.Panel()}, nil
}

func (h *APIHandler) DeleteFocus(ctx context.Context, input *struct{}) (*struct{}, error) {
	h.svc.Controller.Unfocus()
	return nil, nil
}

func (h *APIHandler) GetPanel(ctx context.Context, input *struct{}) (*struct{ Body stats.Panel }, error) {
	return &struct{ Body stats.Panel }{Body: h.svc.Controller.Panel()}, nil
}

func (h *APIHandler) GetSamples(ctx context.Context, input *struct{}) (*struct{ Body []service.SampleFile }, error) {
	samples, err := h.svc.Controller.Samples()
	if err != nil {
		return nil, huma.Error500InternalServerError("listing samples", err)
	}
	return &struct{ Body []service.SampleFile }{Body: samples}, nil
}

func (h *APIHandler) LoadSample(ctx context.Context, input *SampleInput) (*struct{ Body LayerBody }, error) {
	rec, err := h.svc.Controller.LoadSample(input.Name)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &struct{ Body LayerBody }{Body: toLayerBody(rec, h.focusedID())}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*struct{ Body mapsync.Snapshot }, error) {
	return &struct{ Body mapsync.Snapshot }{Body: h.svc.Map.Snapshot()}, nil
}

// toHumaError maps store errors to HTTP status codes.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrNotPermutation), errors.Is(err, service.ErrUnknownAttribute):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, service.ErrInvalidName):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("map update failed", err)
	}
}
