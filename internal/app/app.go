package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/repository/room"
	roomPostgres "github.com/sharetube/watchparty/internal/repository/room/postgres"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/redisclient"
)

const (
	ChatStoreRedis    = "redis"
	ChatStorePostgres = "postgres"
)

type AppConfig struct {
	Secret           string        `json:"-"`
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	LogLevel         string        `json:"log_level"`
	MembersLimit     int           `json:"members_limit"`
	RoomExp          time.Duration `json:"room_exp"`
	SyncTimeout      time.Duration `json:"sync_timeout"`
	IdleRoomTimeout  time.Duration `json:"idle_room_timeout"`
	ChatHistoryLimit int           `json:"chat_history_limit"`
	SendQueueSize    int           `json:"send_queue_size"`
	ChatStore        string        `json:"chat_store"`
	DatabaseDSN      string        `json:"-"`
	RedisHost        string        `json:"redis_host"`
	RedisPort        int           `json:"redis_port"`
	RedisPassword    string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Secret, validation.Required, validation.Length(16, 0)),
		validation.Field(&cfg.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.LogLevel, validation.Required,
			validation.In("DEBUG", "INFO", "WARN", "ERROR").Error("must be one of DEBUG, INFO, WARN, ERROR")),
		validation.Field(&cfg.MembersLimit, validation.Required, validation.Min(1)),
		validation.Field(&cfg.RoomExp, validation.Required, validation.Min(time.Minute)),
		validation.Field(&cfg.SyncTimeout, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&cfg.IdleRoomTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&cfg.ChatHistoryLimit, validation.Min(0)),
		validation.Field(&cfg.SendQueueSize, validation.Min(0)),
		validation.Field(&cfg.ChatStore, validation.Required, validation.In(ChatStoreRedis, ChatStorePostgres)),
		validation.Field(&cfg.DatabaseDSN, validation.When(cfg.ChatStore == ChatStorePostgres, validation.Required)),
		validation.Field(&cfg.RedisHost, validation.Required),
		validation.Field(&cfg.RedisPort, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func NewLogger(level string) (*slog.Logger, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(h), nil
}

type iChatRepo interface {
	AddMessage(context.Context, *room.AddMessageParams) error
	GetMessages(ctx context.Context, roomId string, limit int) ([]room.Message, error)
}

// App holds the wired dependencies of a running server.
type App struct {
	Handler http.Handler
	closers []func() error
	service interface{ Close() }
}

// Close stops every room and releases storage connections.
func (a *App) Close() error {
	a.service.Close()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	return errors.Join(errs...)
}

func New(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (*App, error) {
	a := &App{}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	a.closers = append(a.closers, rc.Close)

	roomRepo := roomRedis.NewRepo(rc, cfg.RoomExp, logger)

	var chatRepo iChatRepo = roomRepo
	if cfg.ChatStore == ChatStorePostgres {
		pgRepo, err := roomPostgres.NewRepo(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("failed to create postgres repo: %w", err)
		}
		a.closers = append(a.closers, pgRepo.Close)
		chatRepo = pgRepo
	}

	roomService := service.New(roomRepo, chatRepo, logger, &service.Config{
		Secret:           cfg.Secret,
		MembersLimit:     cfg.MembersLimit,
		SyncTimeout:      cfg.SyncTimeout,
		IdleRoomTimeout:  cfg.IdleRoomTimeout,
		ChatHistoryLimit: cfg.ChatHistoryLimit,
	})
	a.service = roomService

	c := controller.NewController(roomService, logger, &controller.Config{
		SendQueueSize: cfg.SendQueueSize,
	})
	a.Handler = c.GetMux()

	return a, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close app", "error", err)
		}
	}()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: a.Handler}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		// hijacked websocket connections are not tracked by Shutdown
		a.service.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
