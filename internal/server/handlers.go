package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"viki/vikigraph/internal/engine"
	"viki/vikigraph/internal/graph"
)

func nodeID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid node id"})
		return 0, false
	}
	return id, true
}

// writeError maps engine and store errors to status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, graph.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrDeclined), errors.Is(err, engine.ErrInFlight):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNotWikiPage), errors.Is(err, engine.ErrNotSearchable):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// GetGraph returns the visible and hidden collections.
func GetGraph(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.View())
	}
}

// GetSummary returns the topology summary. Query parameters hub and top
// set the hub degree threshold and the number of hubs listed.
func GetSummary(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub, err := strconv.Atoi(c.DefaultQuery("hub", "5"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hub threshold"})
			return
		}
		top, err := strconv.Atoi(c.DefaultQuery("top", "10"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid top count"})
			return
		}
		c.JSON(http.StatusOK, s.Summary(hub, top))
	}
}

// GetErrors returns every lookup failure surfaced by the session.
func GetErrors(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		errs := s.Errors()
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		c.JSON(http.StatusOK, gin.H{"errors": msgs})
	}
}

// GetNode returns the description of one node.
func GetNode(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := nodeID(c)
		if !ok {
			return
		}
		info, err := s.Info(id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// ElaborateNode elaborates one node. An elaboration over the size threshold
// needs confirm=true and answers 409 without it.
func ElaborateNode(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := nodeID(c)
		if !ok {
			return
		}
		confirmed, _ := strconv.ParseBool(c.Query("confirm"))
		ctx := engine.WithConfirmed(c.Request.Context(), confirmed)
		if err := s.Elaborate(ctx, id); err != nil {
			writeError(c, err)
			return
		}
		info, err := s.Info(id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// HideNode hides a node or its cluster, selected by the mode parameter.
func HideNode(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := nodeID(c)
		if !ok {
			return
		}
		mode, err := engine.ParseHideMode(c.Query("mode"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		hidden, err := s.Hide(id, mode)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"hidden": hidden})
	}
}

// UnhideNode shows one hidden node again.
func UnhideNode(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := nodeID(c)
		if !ok {
			return
		}
		if err := s.Unhide(id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// SelectNode selects one node.
func SelectNode(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := nodeID(c)
		if !ok {
			return
		}
		if err := s.Select(id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ShowAll restores every hidden node.
func ShowAll(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.ShowAll()
		c.Status(http.StatusNoContent)
	}
}

// HideCategories hides the nodes of every category in the JSON list body.
func HideCategories(s *engine.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var categories []string
		if err := c.ShouldBindJSON(&categories); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if len(categories) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no categories provided"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"hidden": s.HideCategories(categories)})
	}
}
