package redis

import (
	"context"
	"reflect"

	"github.com/redis/go-redis/v9"
)

func (r repo) hSetStruct(ctx context.Context, c redis.Pipeliner, key string, value any) {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	fields := make(map[string]any, v.NumField())
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("redis")
		if tag == "" || tag == "-" {
			continue
		}

		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}

		// named types are not marshalable by the client
		switch field.Kind() {
		case reflect.String:
			fields[tag] = field.String()
		case reflect.Bool:
			fields[tag] = field.Bool()
		case reflect.Int, reflect.Int32, reflect.Int64:
			fields[tag] = field.Int()
		case reflect.Float32, reflect.Float64:
			fields[tag] = field.Float()
		default:
			fields[tag] = field.Interface()
		}
	}

	c.HSet(ctx, key, fields)
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

// expireRoom refreshes ttl of every key belonging to the room.
func (r repo) expireRoom(ctx context.Context, pipe redis.Pipeliner, roomId string) {
	pipe.Expire(ctx, r.getRoomKey(roomId), r.expireDuration)
	pipe.Expire(ctx, r.getBansKey(roomId), r.expireDuration)
	pipe.Expire(ctx, r.getPlayerKey(roomId), r.expireDuration)
	pipe.Expire(ctx, r.getMessagesKey(roomId), r.expireDuration)
}
