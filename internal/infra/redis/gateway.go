package redis

import (
	"github.com/redis/go-redis/v9"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
)

// NewGateway builds the Redis-backed persistence gateway.
func NewGateway(client *redis.Client) app.Gateway {
	return app.Gateway{
		UsedKeys:      NewTable[domain.UsedKey](client, "used_keys"),
		WrongAttempts: NewTable[domain.WrongAttempt](client, "wrong_attempts"),
		Winners:       NewWinnerTable(client),
	}
}
