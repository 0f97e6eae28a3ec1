package tournament

import (
	"context"
	"time"
)

// Repo 锦标赛存储抽象；一个地址同时只能在一场锦标赛里
type Repo interface {
	// Save 写入锦标赛并建立 地址 → ID 索引；地址已被占用时返回 ErrAlreadyInTournament
	Save(ctx context.Context, t *Tournament, ttl time.Duration) error
	// Get 不存在时返回 ErrNotFound
	Get(ctx context.Context, id string) (*Tournament, error)
	// GetByPlayer 查找玩家当前所在的锦标赛
	GetByPlayer(ctx context.Context, address string) (*Tournament, error)
	// Delete 删除锦标赛及其索引；不存在时返回 ErrNotFound
	Delete(ctx context.Context, id string) error
}
