package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// MetropolitanArea is a named group of cities a location filter can expand to.
type MetropolitanArea struct {
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

type MetropolitanHandler struct {
	areas []MetropolitanArea
}

func NewMetropolitanHandler(areas map[string][]string) *MetropolitanHandler {
	list := make([]MetropolitanArea, 0, len(areas))
	for name, cities := range areas {
		list = append(list, MetropolitanArea{Name: name, Cities: cities})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return &MetropolitanHandler{areas: list}
}

// SetupMetropolitanRoutes adds the read-only metropolitan area routes to the router
func SetupMetropolitanRoutes(router *gin.Engine, areas map[string][]string) {
	handler := NewMetropolitanHandler(areas)

	router.GET("/api/metropolitan", handler.ListMetropolitanAreas)
	router.GET("/api/metropolitan/:name", handler.GetMetropolitanArea)
}

// ListMetropolitanAreas returns all metropolitan areas
func (h *MetropolitanHandler) ListMetropolitanAreas(c *gin.Context) {
	c.JSON(http.StatusOK, h.areas)
}

// GetMetropolitanArea returns a specific metropolitan area
func (h *MetropolitanHandler) GetMetropolitanArea(c *gin.Context) {
	name := c.Param("name")
	for _, area := range h.areas {
		if strings.EqualFold(area.Name, name) {
			c.JSON(http.StatusOK, area)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Metropolitan area not found"})
}
