package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/pipeline-board/internal/board"
	"github.com/justsurfingit/pipeline-board/internal/dtos"
	"github.com/justsurfingit/pipeline-board/internal/pipeline"
	"github.com/justsurfingit/pipeline-board/internal/services"
)

type BoardHandler struct {
	Boards *services.BoardService
}

func NewBoardHandler(boards *services.BoardService) *BoardHandler {
	return &BoardHandler{Boards: boards}
}

// open mounts the caller's board or writes the error response.
func (h *BoardHandler) open(c *gin.Context) (*services.LiveBoard, bool) {
	lb, err := h.Boards.Open(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load board: " + err.Error()})
		return nil, false
	}
	return lb, true
}

func view(lb *services.LiveBoard) dtos.BoardResponse {
	return dtos.BoardResponse{
		SortMode: string(lb.SortMode()),
		Version:  lb.Store().Version(),
		Columns:  lb.Columns(),
		Notices:  lb.Notices.Drain(),
	}
}

// GetBoard is the GET /board endpoint
func (h *BoardHandler) GetBoard(c *gin.Context) {
	lb, ok := h.open(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view(lb))
}

// SetSort is the PUT /board/sort endpoint
func (h *BoardHandler) SetSort(c *gin.Context) {
	var req dtos.SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	mode, err := pipeline.ParseSortMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lb, err := h.Boards.SetSortMode(c.Request.Context(), currentUser(c), mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change sort mode: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, view(lb))
}

// Reload is the POST /board/reload endpoint
func (h *BoardHandler) Reload(c *gin.Context) {
	lb, ok := h.open(c)
	if !ok {
		return
	}
	if err := lb.Reload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload board: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, view(lb))
}

// Move is the POST /board/moves endpoint. It commits a drop the client
// already resolved and answers once persistence has settled.
func (h *BoardHandler) Move(c *gin.Context) {
	var req dtos.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	lb, ok := h.open(c)
	if !ok {
		return
	}

	if _, found := lb.Store().Get(req.ActiveID); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrApplicationNotFound.Error()})
		return
	}

	drop := board.Drop{ActiveID: req.ActiveID, Over: target(req.OverType, req.OverID)}
	h.settle(c, lb, lb.Commit(c.Request.Context(), drop))
}

// Gesture is the POST /board/gestures endpoint. It replays raw pointer
// input through the drag controller, so the activation threshold and the
// single-session rule apply exactly as they would live.
func (h *BoardHandler) Gesture(c *gin.Context) {
	var req dtos.GestureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	lb, ok := h.open(c)
	if !ok {
		return
	}

	err := lb.PointerDown(req.ActiveID, board.Point{X: req.StartX, Y: req.StartY})
	switch {
	case errors.Is(err, board.ErrUnknownRecord):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, board.ErrSessionActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for _, ev := range req.Events {
		switch ev.Type {
		case "move":
			if _, err := lb.Drag().PointerMove(board.Point{X: ev.X, Y: ev.Y}); err != nil {
				lb.Drag().Cancel()
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
		case "up":
			h.settle(c, lb, lb.Release(c.Request.Context(), target(ev.OverType, ev.OverID)))
			return
		case "cancel":
			lb.Drag().Cancel()
			h.settle(c, lb, lb.Release(c.Request.Context(), board.Target{}))
			return
		}
	}

	// The gesture never ended; a replay cannot leave a card lifted.
	lb.Drag().Cancel()
	h.settle(c, lb, lb.Release(c.Request.Context(), board.Target{}))
}

func (h *BoardHandler) settle(c *gin.Context, lb *services.LiveBoard, commit *board.Commit) {
	resp := dtos.CommitResponse{
		Outcome:     commit.Outcome.String(),
		Description: commit.Description,
	}

	status := http.StatusOK
	if err := commit.Wait(); err != nil {
		status = http.StatusConflict
		if !errors.Is(err, board.ErrSyncFailed) {
			status = http.StatusInternalServerError
		}
		resp.Error = err.Error()
	}

	resp.Board = view(lb)
	c.JSON(status, resp)
}

func target(kind, id string) board.Target {
	if id == "" {
		return board.Target{}
	}
	return board.Target{Kind: board.TargetKind(kind), ID: id}
}
