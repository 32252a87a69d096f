package http_room

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/shinchan79/peerpoint/internal/delivery/http/common"
	"github.com/shinchan79/peerpoint/internal/model"
	usecase_room "github.com/shinchan79/peerpoint/internal/usecase/room"
)

type Controller struct {
	usecase *usecase_room.Usecase
	logger  *slog.Logger
}

func New(usecase *usecase_room.Usecase) *Controller {
	return &Controller{
		usecase: usecase,
		logger:  slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.POST("", c.create)
		rooms.GET("/:room_id", c.state)
		rooms.GET("/:room_id/participants", c.participants)
		rooms.POST("/:room_id/votes", c.vote)
	}
}

type CreateRequestDTO struct {
	RoomID    string   `json:"room_id"`
	Kind      string   `json:"kind" binding:"required"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	ProjectID string   `json:"project_id"`
}

type CreateResponseDTO struct {
	RoomID string `json:"room_id"`
}

func (c *Controller) create(ctx *gin.Context) {
	var req CreateRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	roomID, err := c.usecase.Create(ctx, usecase_room.CreateParams{
		RoomID:    model.RoomID(req.RoomID),
		Kind:      model.RoomKind(req.Kind),
		Question:  req.Question,
		Options:   req.Options,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		c.logger.Error("failed to create room", slog.String("error", err.Error()))
		switch {
		case errors.Is(err, usecase_room.ErrInvalidKind), errors.Is(err, usecase_room.ErrInvalidOptions):
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: err.Error(),
			})
		case errors.Is(err, usecase_room.ErrResourceNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
		case errors.Is(err, usecase_room.ErrCodeConflict):
			ctx.JSON(http.StatusConflict, http_common.ErrorResponse{
				Message: err.Error(),
			})
		default:
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	ctx.JSON(http.StatusCreated, CreateResponseDTO{
		RoomID: string(roomID),
	})
}

type StateResponseDTO struct {
	RoomID       string              `json:"room_id"`
	Kind         string              `json:"kind"`
	Content      string              `json:"content,omitempty"`
	Question     string              `json:"question,omitempty"`
	Options      []string            `json:"options,omitempty"`
	Votes        map[string]int      `json:"votes,omitempty"`
	Total        int                 `json:"total,omitempty"`
	Version      uint64              `json:"version"`
	Participants []model.Participant `json:"participants"`
}

func (c *Controller) state(ctx *gin.Context) {
	id := model.RoomID(ctx.Param("room_id"))

	snap, err := c.usecase.State(ctx, id)
	if err != nil {
		c.respondError(ctx, "failed to get room state", err)
		return
	}
	participants, err := c.usecase.Participants(ctx, id)
	if err != nil {
		c.respondError(ctx, "failed to get participants", err)
		return
	}

	ctx.JSON(http.StatusOK, StateResponseDTO{
		RoomID:       string(snap.RoomID),
		Kind:         string(snap.Kind),
		Content:      snap.Content,
		Question:     snap.Question,
		Options:      snap.Options,
		Votes:        snap.Votes,
		Total:        snap.VotesTotal(),
		Version:      snap.Version,
		Participants: participants,
	})
}

func (c *Controller) participants(ctx *gin.Context) {
	id := model.RoomID(ctx.Param("room_id"))

	participants, err := c.usecase.Participants(ctx, id)
	if err != nil {
		c.respondError(ctx, "failed to get participants", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"participants": participants})
}

type VoteRequestDTO struct {
	Option string `json:"option" binding:"required"`
}

func (c *Controller) vote(ctx *gin.Context) {
	id := model.RoomID(ctx.Param("room_id"))

	var req VoteRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	if err := c.usecase.Vote(ctx, id, req.Option); err != nil {
		c.logger.Error("failed to vote", slog.String("error", err.Error()))
		switch {
		case errors.Is(err, usecase_room.ErrInvalidOption), errors.Is(err, usecase_room.ErrInvalidKind):
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: err.Error(),
			})
		case errors.Is(err, usecase_room.ErrResourceNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
		default:
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) respondError(ctx *gin.Context, msg string, err error) {
	c.logger.Error(msg, slog.String("error", err.Error()))
	if errors.Is(err, usecase_room.ErrResourceNotFound) {
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
			Message: "not found",
		})
		return
	}
	ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
		Message: "internal error",
	})
}
