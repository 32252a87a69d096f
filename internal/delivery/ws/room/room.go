package ws_room

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	collab_coordinator "github.com/shinchan79/peerpoint/internal/collab/coordinator"
	collab_session "github.com/shinchan79/peerpoint/internal/collab/session"
	http_common "github.com/shinchan79/peerpoint/internal/delivery/http/common"
	"github.com/shinchan79/peerpoint/internal/model"
	usecase_room "github.com/shinchan79/peerpoint/internal/usecase/room"
)

type Controller struct {
	usecase  *usecase_room.Usecase
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func New(usecase *usecase_room.Usecase) *Controller {
	return &Controller{
		usecase: usecase,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	rooms.GET("/:room_id/ws", c.serve)
}

func (c *Controller) serve(ctx *gin.Context) {
	roomID := model.RoomID(ctx.Param("room_id"))
	participant := participantFromRequest(ctx)

	// Join before upgrading so a missing room still maps to a clean 404.
	coordinator, sess, err := c.usecase.Join(ctx, roomID, participant)
	if err != nil {
		c.logger.Error("failed to join room",
			slog.String("room", string(roomID)), slog.String("error", err.Error()))
		if errors.Is(err, usecase_room.ErrResourceNotFound) {
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

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		coordinator.Leave(sess)
		return
	}

	go c.startClientWriting(conn, sess)
	c.startClientReading(conn, coordinator, sess)
}

// Identity comes from the presence provider in front of us; the room
// trusts it as given.
func participantFromRequest(ctx *gin.Context) model.Participant {
	p := model.Participant{
		ID:    ctx.Query("user_id"),
		Name:  ctx.Query("user_name"),
		Color: ctx.Query("user_color"),
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Name == "" {
		p.Name = "anonymous"
	}
	if p.Color == "" {
		p.Color = "#888888"
	}
	return p
}

func (c *Controller) startClientReading(
	conn *websocket.Conn,
	coordinator *collab_coordinator.Coordinator,
	sess *collab_session.Session,
) {
	defer func() {
		coordinator.Leave(sess)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		coordinator.HandleMessage(sess, data)
	}
}

func (c *Controller) startClientWriting(conn *websocket.Conn, sess *collab_session.Session) {
	defer conn.Close()

	for payload := range sess.Outbound() {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
}
