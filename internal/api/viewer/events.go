package viewer

import (
	"context"

	"github.com/apex/log"
	"github.com/danielgtaylor/huma/v2"

	"github.com/benatfroemming/mapping-tool/internal/app"
	"github.com/benatfroemming/mapping-tool/internal/humastar"
	"github.com/benatfroemming/mapping-tool/internal/mapsync"
	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/templates"
)

// maxBatch caps the map commands sent in one script event.
const maxBatch = 64

// EventHandler streams map commands and UI fragments to a viewer.
type EventHandler struct {
	humastar.Handler
	ctrl   *app.Controller
	mirror *mapsync.Mirror
	bus    *service.EventBus
}

// NewEventHandler creates an event handler.
func NewEventHandler(ctrl *app.Controller, mirror *mapsync.Mirror, bus *service.EventBus, renderer *templates.Renderer) *EventHandler {
	return &EventHandler{
		Handler: humastar.Handler{Renderer: renderer},
		ctrl:    ctrl,
		mirror:  mirror,
		bus:     bus,
	}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/viewer/events", h.Events, huma.OperationTags("viewer"))
}

// Events replays the current map, then forwards every map command and
// re-renders the sidebar and panel on every store change. A client that
// falls behind is disconnected and rebuilds from the replay on reconnect.
func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		replay, cmds := h.mirror.Attach()
		defer h.mirror.Unsubscribe(cmds)
		events, cancel := h.bus.Subscribe()
		defer cancel()

		log.WithFields(log.Fields{
			"commands": len(replay),
			"viewers":  h.bus.Subscribers(),
		}).Debug("viewer attached")
		if err := sse.ExecuteScript(resetFn + "()"); err != nil {
			return
		}
		if err := sse.Call(applyFn, replay); err != nil {
			return
		}
		patchState(&h.Handler, sse, h.ctrl)

		for {
			select {
			case <-ctx.Done():
				return
			case cmd, ok := <-cmds:
				if !ok {
					log.Warn("viewer fell behind, dropping stream")
					return
				}
				if err := sse.Call(applyFn, drain(cmd, cmds)); err != nil {
					return
				}
			case ev := <-events:
				patchState(&h.Handler, sse, h.ctrl)
				sse.DispatchCustomEvent("layer-changed", ev)
			}
		}
	}), nil
}

// drain collects first plus whatever is already queued, up to maxBatch.
func drain(first mapsync.Command, ch <-chan mapsync.Command) []mapsync.Command {
	batch := []mapsync.Command{first}
	for len(batch) < maxBatch {
		select {
		case cmd, ok := <-ch:
			if !ok {
				return batch
			}
			batch = append(batch, cmd)
		default:
			return batch
		}
	}
	return batch
}
