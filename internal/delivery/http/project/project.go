package http_project

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/shinchan79/peerpoint/internal/delivery/http/common"
	usecase_project "github.com/shinchan79/peerpoint/internal/usecase/project"
)

type Controller struct {
	usecase *usecase_project.Usecase
	logger  *slog.Logger
}

func New(usecase *usecase_project.Usecase) *Controller {
	return &Controller{
		usecase: usecase,
		logger:  slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.GET("/:project_id/file", c.file)
		projects.PUT("/:project_id/file", c.save)
	}
}

type FileResponseDTO struct {
	Content string `json:"content"`
}

func (c *Controller) file(ctx *gin.Context) {
	projectID := ctx.Param("project_id")

	content, err := c.usecase.Content(ctx, projectID)
	if err != nil {
		c.logger.Error("failed to load project file", slog.String("error", err.Error()))
		if errors.Is(err, usecase_project.ErrResourceNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusOK, FileResponseDTO{Content: content})
}

type SaveRequestDTO struct {
	Content string `json:"content"`
}

func (c *Controller) save(ctx *gin.Context) {
	projectID := ctx.Param("project_id")

	var req SaveRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	if err := c.usecase.Save(ctx, projectID, req.Content); err != nil {
		c.logger.Error("failed to save project file", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.Status(http.StatusNoContent)
}
