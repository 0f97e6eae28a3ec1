package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) Repo {
	return &redisRepo{rdb: rdb}
}

// key 约定：
//
//	kv: tn:tournament:{id}      -> JSON(Tournament)
//	kv: tn:player:{address}     -> id (一个地址只能占一场)
func tournamentKey(id string) string {
	return fmt.Sprintf("tn:tournament:%s", id)
}
func playerKey(addr string) string {
	return fmt.Sprintf("tn:player:%s", addr)
}

// KEYS[1] = playerKey, KEYS[2] = tournamentKey
// ARGV[1] = id, ARGV[2] = json, ARGV[3] = ttl(ms)，0 表示不过期
var saveScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur and cur ~= ARGV[1] then
    return 0
end
if tonumber(ARGV[3]) > 0 then
    redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
    redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
    redis.call("SET", KEYS[2], ARGV[2])
    redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// KEYS[1] = tournamentKey, KEYS[2] = playerKey, ARGV[1] = id
// 只删除仍指向本场的索引
var deleteScript = redis.NewScript(`
redis.call("DEL", KEYS[1])
if redis.call("GET", KEYS[2]) == ARGV[1] then
    redis.call("DEL", KEYS[2])
end
return 1
`)

func (r *redisRepo) Save(ctx context.Context, t *Tournament, ttl time.Duration) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ok, err := saveScript.Run(ctx, r.rdb,
		[]string{playerKey(t.Address), tournamentKey(t.ID)},
		t.ID, data, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrAlreadyInTournament
	}
	return nil
}

func (r *redisRepo) Get(ctx context.Context, id string) (*Tournament, error) {
	data, err := r.rdb.Get(ctx, tournamentKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t Tournament
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tournament %s: %w", id, err)
	}
	return &t, nil
}

func (r *redisRepo) GetByPlayer(ctx context.Context, address string) (*Tournament, error) {
	id, err := r.rdb.Get(ctx, playerKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *redisRepo) Delete(ctx context.Context, id string) error {
	t, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return deleteScript.Run(ctx, r.rdb, []string{tournamentKey(id), playerKey(t.Address)}, id).Err()
}
