package tournament

import (
	"errors"
	"time"

	"CoolerPoker/internal/game/table"
)

var (
	ErrNotFound            = errors.New("tournament not found")
	ErrAlreadyInTournament = errors.New("player already in a tournament")
	ErrInvalidRequest      = errors.New("invalid tournament request")
)

// MaxBots 一张桌最多 9 个座位
const MaxBots = 8

// CreateRequest 前端提交的开局请求；Address 由 JWT 中间件注入
type CreateRequest struct {
	Address         string         `json:"-"`
	Mode            table.GameMode `json:"mode"`
	BotCount        int            `json:"botCount"`
	HumanChair      int            `json:"humanChair"`
	ContractAddress string         `json:"contractAddress"` // 可选，账本合约地址
}

// Tournament 一个人类玩家对若干机器人的锦标赛
type Tournament struct {
	ID              string         `json:"id"`
	Address         string         `json:"address"`
	Mode            table.GameMode `json:"mode"`
	BotCount        int            `json:"botCount"`
	HumanChair      int            `json:"humanChair"`
	ContractAddress string         `json:"contractAddress,omitempty"`
	Balances        []int64        `json:"balances,omitempty"`  // 按座位；为空时用默认筹码
	Addresses       []string       `json:"addresses,omitempty"` // 按座位
	CreatedAt       time.Time      `json:"createdAt"`
}
