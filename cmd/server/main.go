package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret = configVar[string]{
		envKey:  "SERVER_SECRET",
		flagKey: "secret",
		usage:   "Secret used to sign auth tokens",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 9,
		usage:        "Maximum number of connected members in a room",
	}
	roomExp = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_EXP",
		flagKey:      "room-exp",
		defaultValue: 14 * 24 * time.Hour,
		usage:        "How long an untouched room is kept in redis",
	}
	syncTimeout = configVar[time.Duration]{
		envKey:       "SERVER_SYNC_TIMEOUT",
		flagKey:      "sync-timeout",
		defaultValue: 3 * time.Second,
		usage:        "How long to wait for the host to answer a sync request",
	}
	idleRoomTimeout = configVar[time.Duration]{
		envKey:       "SERVER_IDLE_ROOM_TIMEOUT",
		flagKey:      "idle-room-timeout",
		defaultValue: 30 * time.Second,
		usage:        "How long an empty room stays loaded in memory",
	}
	chatHistoryLimit = configVar[int]{
		envKey:       "SERVER_CHAT_HISTORY_LIMIT",
		flagKey:      "chat-history-limit",
		defaultValue: 100,
		usage:        "Number of chat messages kept and replayed on join",
	}
	sendQueueSize = configVar[int]{
		envKey:       "SERVER_SEND_QUEUE_SIZE",
		flagKey:      "send-queue-size",
		defaultValue: 256,
		usage:        "Events buffered per websocket session",
	}
	chatStore = configVar[string]{
		envKey:       "SERVER_CHAT_STORE",
		flagKey:      "chat-store",
		defaultValue: app.ChatStoreRedis,
		usage:        "Chat history storage: redis or postgres",
	}
	databaseDSN = configVar[string]{
		envKey:  "DATABASE_DSN",
		flagKey: "database-dsn",
		usage:   "Postgres connection string, required when chat-store is postgres",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
)

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, membersLimit.usage)
	pflag.Duration(roomExp.flagKey, roomExp.defaultValue, roomExp.usage)
	pflag.Duration(syncTimeout.flagKey, syncTimeout.defaultValue, syncTimeout.usage)
	pflag.Duration(idleRoomTimeout.flagKey, idleRoomTimeout.defaultValue, idleRoomTimeout.usage)
	pflag.Int(chatHistoryLimit.flagKey, chatHistoryLimit.defaultValue, chatHistoryLimit.usage)
	pflag.Int(sendQueueSize.flagKey, sendQueueSize.defaultValue, sendQueueSize.usage)
	pflag.String(chatStore.flagKey, chatStore.defaultValue, chatStore.usage)
	pflag.String(databaseDSN.flagKey, databaseDSN.defaultValue, databaseDSN.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	secret.bind()
	port.bind()
	host.bind()
	logLevel.bind()
	membersLimit.bind()
	roomExp.bind()
	syncTimeout.bind()
	idleRoomTimeout.bind()
	chatHistoryLimit.bind()
	sendQueueSize.bind()
	chatStore.bind()
	databaseDSN.bind()
	redisPort.bind()
	redisHost.bind()
	redisPassword.bind()

	return &app.AppConfig{
		Secret:           viper.GetString(secret.flagKey),
		Host:             viper.GetString(host.flagKey),
		Port:             viper.GetInt(port.flagKey),
		LogLevel:         strings.ToUpper(viper.GetString(logLevel.flagKey)),
		MembersLimit:     viper.GetInt(membersLimit.flagKey),
		RoomExp:          viper.GetDuration(roomExp.flagKey),
		SyncTimeout:      viper.GetDuration(syncTimeout.flagKey),
		IdleRoomTimeout:  viper.GetDuration(idleRoomTimeout.flagKey),
		ChatHistoryLimit: viper.GetInt(chatHistoryLimit.flagKey),
		SendQueueSize:    viper.GetInt(sendQueueSize.flagKey),
		ChatStore:        viper.GetString(chatStore.flagKey),
		DatabaseDSN:      viper.GetString(databaseDSN.flagKey),
		RedisPort:        viper.GetInt(redisPort.flagKey),
		RedisHost:        viper.GetString(redisHost.flagKey),
		RedisPassword:    viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
