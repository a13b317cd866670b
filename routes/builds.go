package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mcjars/registry/apimiddleware"
	"github.com/mcjars/registry/apiresponse"
	"github.com/mcjars/registry/models"
)

// buildLookup is the shape returned for a single build resolution,
// bundling the matched build alongside the newest build sharing its
// version and that version's rollup, matching build.rs's v1 response
// envelope.
type buildLookup struct {
	Build   *models.Build           `json:"build"`
	Latest  *models.Build           `json:"latest"`
	Version *models.MinifiedVersion `json:"version"`
}

// GetBuild handles GET /api/build/:identifier: resolves a build by its
// numeric id or by a hex digest in any supported hash algorithm.
func (d *Deps) GetBuild(c echo.Context) (apiresponse.Response, error) {
	identifier := c.Param("identifier")

	matched, newest, version, err := models.BuildByV1Identifier(c.Request().Context(), d.Pool.Read(), d.Cache, identifier)
	if err != nil {
		return apiresponse.Response{}, err
	}
	if matched == nil {
		return apiresponse.Response{}, apiresponse.NotFound("build not found")
	}

	if data := apimiddleware.DataSlot(c); data != nil {
		data["type"] = "build"
		data["build"] = matched.ID
	}

	return apiresponse.JSON(buildLookup{Build: matched, Latest: newest, Version: version}), nil
}
