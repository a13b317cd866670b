// Package routes wires the domain read models (C7) to HTTP handlers
// through apimiddleware's Gate/Wrap (C5) and apiresponse's envelope
// (C6), exercising the bounded file cache (C3) on the download path.
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mcjars/registry/apiresponse"
	"github.com/mcjars/registry/auth"
	"github.com/mcjars/registry/cache"
	"github.com/mcjars/registry/db"
	"github.com/mcjars/registry/filecache"
	"github.com/mcjars/registry/models/servertype"
)

// Deps bundles every dependency a route handler needs, built once at
// startup and closed over by each handler constructor below.
type Deps struct {
	Pool      *db.Pool
	Cache     *cache.Client
	FileCache *filecache.Cache

	Github          auth.GithubConfig
	AppFrontendURL  string
	AppCookieDomain string
}

// ListTypes handles GET /api/types: every server family's static
// metadata plus its cached build/version rollup.
func (d *Deps) ListTypes(c echo.Context) (apiresponse.Response, error) {
	infos, err := servertype.AllWithStats(c.Request().Context(), d.Pool.Read(), d.Cache)
	if err != nil {
		return apiresponse.Response{}, err
	}

	out := make(map[string]servertype.Info, len(infos))
	for t, info := range infos {
		out[string(t)] = info
	}
	for _, t := range servertype.All {
		if _, ok := out[string(t)]; !ok {
			out[string(t)] = servertype.Infos(t)
		}
	}

	return apiresponse.JSON(out), nil
}
