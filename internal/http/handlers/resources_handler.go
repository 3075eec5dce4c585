// Resource and specialist HTTP handlers.
//
// This file serves the static educational catalog and the specialist
// directory, both read-only:
//   - GET /resources               (catalog with title-cased categories)
//   - GET /resources/{slug}        (one article by slug, numeric id fallback)
//   - GET /specialists             (directory with specialty/location filters)
//   - GET /specialists/specialties (filter options)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/earlyvue/go-screening-backend/internal/resources"
	"github.com/earlyvue/go-screening-backend/internal/utils"
)

// ListResources godoc
// @ID          listResources
// @Summary     Educational resources
// @Tags        Resources
// @Produce     json
//
// @Success     200  {object}  map[string]any  "resources"
// @Router      /resources [get]
func (h *Handlers) ListResources(c *gin.Context) {
	items := resources.All()
	ok(c, http.StatusOK, envelope("resources", items, gin.H{"count": len(items)}))
}

// GetResource godoc
// @ID          getResource
// @Summary     One educational resource
// @Description Looks the article up by slug; purely numeric values fall back
// @Description to the catalog id.
// @Tags        Resources
// @Produce     json
//
// @Param       slug  path  string  true  "Resource slug or numeric id"
//
// @Success     200  {object}  map[string]any          "resource"
// @Failure     404  {object}  handlers.ErrorResponse  "Resource not found"
// @Router      /resources/{slug} [get]
func (h *Handlers) GetResource(c *gin.Context) {
	slug := c.Param("slug")
	res, found := resources.BySlug(slug)
	if !found {
		if id := utils.AtoiDefault(slug, -1); id > 0 {
			res, found = resources.ByID(id)
		}
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
		return
	}
	ok(c, http.StatusOK, envelope("resource", res, nil))
}

// SearchResources godoc
// @ID          searchResources
// @Summary     Search the educational catalog
// @Description Ranks catalog paragraphs against the query by token overlap
// @Description and returns the best snippets with their scores.
// @Tags        Resources
// @Produce     json
//
// @Param       q  query  string  true   "Search query"
// @Param       k  query  int     false  "Maximum snippets (1-10, default 3)"
//
// @Success     200  {object}  map[string]any          "matches"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing query"
// @Router      /resources/search [get]
func (h *Handlers) SearchResources(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q required")
		return
	}
	k := utils.AtoiDefault(c.Query("k"), 3)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}
	matches := h.resourceIdx.TopK(q, k)
	ok(c, http.StatusOK, envelope("matches", matches, gin.H{"count": len(matches)}))
}

// ListSpecialists godoc
// @ID          listSpecialists
// @Summary     Specialist directory
// @Description Filters by exact specialty (case-insensitive) and location
// @Description substring when the query parameters are set.
// @Tags        Resources
// @Produce     json
//
// @Param       specialty  query  string  false  "Specialty filter"
// @Param       location   query  string  false  "Location substring filter"
//
// @Success     200  {object}  map[string]any  "specialists"
// @Router      /specialists [get]
func (h *Handlers) ListSpecialists(c *gin.Context) {
	items := resources.FindSpecialists(resources.SpecialistFilter{
		Specialty: c.Query("specialty"),
		Location:  c.Query("location"),
	})
	ok(c, http.StatusOK, envelope("specialists", items, gin.H{"count": len(items)}))
}

// ListSpecialties godoc
// @ID          listSpecialties
// @Summary     Specialist filter options
// @Tags        Resources
// @Produce     json
//
// @Success     200  {object}  map[string]any  "specialties"
// @Router      /specialists/specialties [get]
func (h *Handlers) ListSpecialties(c *gin.Context) {
	ok(c, http.StatusOK, envelope("specialties", resources.Specialties, nil))
}
