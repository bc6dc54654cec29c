// Redis pub/sub admin channel, grounded on the teacher's redis_cmds.go
// (setupRedisCommandReceiver/parseRedisCommand), scoped to the
// kill-session/close-stream commands this spec's single active_session
// model needs, with the GetPublisher(channel) lookup replaced by the
// active_session slot.

package main

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisControl listens on a Redis channel for out-of-band admin commands
// ("kill-session>app" and "close-stream>app|streamId") targeting the
// currently active publisher.
type RedisControl struct {
	server *Server
	client *redis.Client
}

func NewRedisControl(server *Server) *RedisControl {
	return &RedisControl{
		server: server,
		client: redis.NewClient(&redis.Options{Addr: server.Config.RedisURL}),
	}
}

func (r *RedisControl) Run() {
	ctx := context.Background()
	sub := r.client.Subscribe(ctx, r.server.Config.RedisChannel)
	LogInfo("[REDIS] listening for commands on channel '" + r.server.Config.RedisChannel + "'")

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			LogWarning("[REDIS] connection error: " + err.Error())
			time.Sleep(10 * time.Second)
			continue
		}
		r.dispatch(msg.Payload)
	}
}

func (r *RedisControl) dispatch(cmd string) {
	parts := strings.SplitN(cmd, ">", 2)
	if len(parts) != 2 {
		LogWarning("[REDIS] invalid command: " + cmd)
		return
	}

	name, args := parts[0], strings.Split(parts[1], "|")

	switch name {
	case "kill-session":
		if len(args) < 1 {
			LogWarning("[REDIS] invalid command: " + cmd)
			return
		}
		r.killIfMatches(args[0], "")
	case "close-stream":
		if len(args) < 2 {
			LogWarning("[REDIS] invalid command: " + cmd)
			return
		}
		r.killIfMatches(args[0], args[1])
	default:
		LogWarning("[REDIS] unknown command: " + name)
	}
}

func (r *RedisControl) killIfMatches(app, streamID string) {
	r.server.mu.Lock()
	active := r.server.activeSession
	r.server.mu.Unlock()

	if active == nil || active.Application != app {
		return
	}
	if streamID != "" && active.CoordinatorStreamID != streamID {
		return
	}
	active.conn.Close()
}
