package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/benatfroemming/mapping-tool/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/samples>; rel="samples"`,
		`</api/v1/panel>; rel="panel"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/layers": {
		`</api/v1/layers/order>; rel="edit"`,
		`</api/v1/panel>; rel="panel"`,
		`</api/v1/map>; rel="map"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/panel": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/samples": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="search"`,
	},
}

// LinkTransformer returns a Huma Transformer that adds Link headers: the
// static navigation links, a self link on item routes and the actions of
// Actor bodies.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if a, ok := v.(humastar.Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}
