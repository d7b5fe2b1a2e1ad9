package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/pipeline-board/internal/dtos"
	"github.com/justsurfingit/pipeline-board/internal/events"
	"github.com/justsurfingit/pipeline-board/internal/pipeline"
	"github.com/justsurfingit/pipeline-board/internal/services"
)

type ApplicationHandler struct {
	Applications *services.ApplicationService
	Events       *services.EventService
	Boards       *services.BoardService
}

func NewApplicationHandler(apps *services.ApplicationService, evts *services.EventService, boards *services.BoardService) *ApplicationHandler {
	return &ApplicationHandler{
		Applications: apps,
		Events:       evts,
		Boards:       boards,
	}
}

// CreateApplication is the POST /applications endpoint
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	var req dtos.ApplicationCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	user := currentUser(c)
	app, err := h.Applications.CreateApplication(c.Request.Context(), user.ID, &req)
	if errors.Is(err, pipeline.ErrUnknownStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create application: " + err.Error()})
		return
	}

	h.Boards.Announce(c.Request.Context(), events.Event{Kind: events.KindChanged, UserID: user.ID, ApplicationID: app.ID})
	c.JSON(http.StatusCreated, app)
}

// DeleteApplication is the DELETE /applications/:id endpoint
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	user := currentUser(c)
	id := c.Param("id")

	_, err := h.Applications.DeleteApplication(c.Request.Context(), user.ID, id)
	if errors.Is(err, services.ErrApplicationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete application: " + err.Error()})
		return
	}

	h.Boards.Announce(c.Request.Context(), events.Event{Kind: events.KindRemoved, UserID: user.ID, ApplicationID: id})
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ListEvents is the GET /applications/:id/events endpoint
func (h *ApplicationHandler) ListEvents(c *gin.Context) {
	user := currentUser(c)
	id := c.Param("id")

	if _, err := h.Applications.GetApplication(c.Request.Context(), user.ID, id); err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	history, err := h.Events.History(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}
