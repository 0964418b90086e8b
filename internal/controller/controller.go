package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iRoomService interface {
	IssueToken(context.Context, *service.IssueTokenParams) (service.IssueTokenResponse, error)
	ParseToken(tokenString string) (service.User, error)
	CreateRoom(context.Context, *service.CreateRoomParams) (service.Room, error)
	GetRoom(ctx context.Context, roomId, viewerId string) (service.Room, error)
	GetMessages(context.Context, *service.GetMessagesParams) ([]service.ChatMessage, error)
	GetBans(ctx context.Context, roomId, userId string) ([]string, error)
	Join(context.Context, *service.JoinParams) (service.JoinResult, error)
	Leave(context.Context, *service.SessionParams) error
	Kick(context.Context, *service.TargetParams) (service.Outcome, error)
	Ban(context.Context, *service.TargetParams) (service.Outcome, error)
	Unban(context.Context, *service.TargetParams) (service.Outcome, error)
	AcceptJoin(context.Context, *service.TargetParams) (service.Outcome, error)
	RejectJoin(context.Context, *service.TargetParams) (service.Outcome, error)
	TransferHost(context.Context, *service.TargetParams) (service.Outcome, error)
	EndRoom(context.Context, *service.SessionParams) (service.Outcome, error)
	HostAction(context.Context, *service.HostActionParams) (service.Outcome, error)
	RequestSync(context.Context, *service.SessionParams) (service.Outcome, error)
	SendHostTime(context.Context, *service.SendHostTimeParams) (service.Outcome, error)
	PollSchedule(context.Context, *service.SessionParams) (service.Outcome, error)
	SendMessage(context.Context, *service.SendMessageParams) (service.ChatMessage, error)
}

type Config struct {
	// Events buffered per session before it is dropped as a slow consumer.
	SendQueueSize int
	PongWait      time.Duration
	WriteWait     time.Duration
}

type controller struct {
	roomService   iRoomService
	upgrader      websocket.Upgrader
	validate      *validator.Validator
	wsmux         *wsrouter.WSRouter
	logger        *slog.Logger
	sendQueueSize int
	pongWait      time.Duration
	writeWait     time.Duration
	idSeq         *atomic.Uint64
}

func NewController(roomService iRoomService, logger *slog.Logger, cfg *Config) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:   roomService,
		validate:      validator.NewValidator(),
		logger:        logger,
		sendQueueSize: cfg.SendQueueSize,
		pongWait:      cfg.PongWait,
		writeWait:     cfg.WriteWait,
		idSeq:         new(atomic.Uint64),
	}
	if c.sendQueueSize <= 0 {
		c.sendQueueSize = 256
	}
	if c.pongWait <= 0 {
		c.pongWait = 60 * time.Second
	}
	if c.writeWait <= 0 {
		c.writeWait = 10 * time.Second
	}
	c.wsmux = c.getWSRouter()

	return c
}

// generateTimeBasedId returns an id that sorts by creation time within one process.
func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + strconv.FormatUint(c.idSeq.Add(1), 36)
}
