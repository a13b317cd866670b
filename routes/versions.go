package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mcjars/registry/apimiddleware"
	"github.com/mcjars/registry/apiresponse"
	"github.com/mcjars/registry/models"
	"github.com/mcjars/registry/models/servertype"
)

// ListVersions handles GET /api/:type/versions: every known version of
// one server family paired with its latest build.
func (d *Deps) ListVersions(c echo.Context) (apiresponse.Response, error) {
	t, err := servertype.Parse(c.Param("type"))
	if err != nil {
		return apiresponse.Response{}, apiresponse.NotFound("unknown server type")
	}

	versions, err := models.VersionsForType(c.Request().Context(), d.Pool.Read(), d.Cache, t)
	if err != nil {
		return apiresponse.Response{}, err
	}

	if data := apimiddleware.DataSlot(c); data != nil {
		data["type"] = "versions"
		data["serverType"] = string(t)
	}

	return apiresponse.JSON(versions), nil
}
