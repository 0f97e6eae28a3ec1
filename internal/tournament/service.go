package tournament

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CoolerPoker/internal/game/table"
	"CoolerPoker/internal/utils"

	"github.com/google/uuid"
)

var ErrNotOwner = errors.New("tournament belongs to another player")

// Roster 账本里按座位排列的筹码与地址
type Roster interface {
	Roster(ctx context.Context, contract string) (balances []int64, addresses []string, err error)
	SeedRoster(ctx context.Context, contract string, balances []int64, addresses []string) error
}

type Service struct {
	repo   Repo
	ttl    time.Duration // 防止遗留的锦标赛永远占住玩家
	roster Roster

	// 请求未指定时的默认值；StartingBalance 也用于给空合约写入名单
	DefaultMode     table.GameMode
	DefaultBotCount int
	StartingBalance int64

	OnCreated  func(*Tournament) error // ✅ 建局后启动游戏；返回错误时回滚
	OnFinished func(*Tournament)
}

// NewService roster 可为 nil，此时忽略 contractAddress 里的名单
func NewService(repo Repo, ttl time.Duration, roster Roster) *Service {
	return &Service{repo: repo, ttl: ttl, roster: roster}
}

func validate(req CreateRequest) error {
	switch {
	case req.Address == "":
		return fmt.Errorf("%w: missing address", ErrInvalidRequest)
	case !req.Mode.Valid():
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	case req.BotCount < 2 || req.BotCount > MaxBots:
		return fmt.Errorf("%w: botCount must be between 2 and %d", ErrInvalidRequest, MaxBots)
	case req.HumanChair < 0 || req.HumanChair > req.BotCount:
		return fmt.Errorf("%w: humanChair %d out of range", ErrInvalidRequest, req.HumanChair)
	}
	return nil
}

// Create 校验、读取账本名单、保存并触发 OnCreated
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Tournament, error) {
	if req.Mode == "" {
		req.Mode = s.DefaultMode
	}
	if req.BotCount == 0 {
		req.BotCount = s.DefaultBotCount
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	// ❶ 防止重复开局
	existing, err := s.repo.GetByPlayer(ctx, req.Address)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInTournament, existing.ID)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	t := &Tournament{
		ID:              uuid.NewString(),
		Address:         req.Address,
		Mode:            req.Mode,
		BotCount:        req.BotCount,
		HumanChair:      req.HumanChair,
		ContractAddress: req.ContractAddress,
		CreatedAt:       time.Now(),
	}

	// ❷ 有合约时按账本名单入座
	if req.ContractAddress != "" && s.roster != nil {
		balances, addrs, err := s.loadRoster(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := checkRoster(req, balances, addrs); err != nil {
			return nil, err
		}
		t.Balances, t.Addresses = balances, addrs
	}

	if err := s.repo.Save(ctx, t, s.ttl); err != nil {
		return nil, err
	}

	if s.OnCreated != nil {
		if err := s.OnCreated(t); err != nil {
			if delErr := s.repo.Delete(ctx, t.ID); delErr != nil {
				utils.Log.Warn("rollback tournament failed", "id", t.ID, "err", delErr)
			}
			return nil, err
		}
	}
	utils.Log.Info("tournament created", "id", t.ID, "player", t.Address, "mode", t.Mode, "bots", t.BotCount)
	return t, nil
}

// loadRoster 合约还没有名单时按默认筹码写入
func (s *Service) loadRoster(ctx context.Context, req CreateRequest) ([]int64, []string, error) {
	balances, addrs, err := s.roster.Roster(ctx, req.ContractAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("load roster: %w", err)
	}
	if len(balances) > 0 || s.StartingBalance <= 0 {
		return balances, addrs, nil
	}

	seats := req.BotCount + 1
	balances = make([]int64, seats)
	addrs = make([]string, seats)
	for i := range balances {
		balances[i] = s.StartingBalance
	}
	addrs[req.HumanChair] = req.Address
	if err := s.roster.SeedRoster(ctx, req.ContractAddress, balances, addrs); err != nil {
		return nil, nil, fmt.Errorf("seed roster: %w", err)
	}
	utils.Log.Info("ledger roster seeded", "contract", req.ContractAddress, "seats", seats)
	return balances, addrs, nil
}

func checkRoster(req CreateRequest, balances []int64, addrs []string) error {
	seats := req.BotCount + 1
	if len(balances) != seats || len(addrs) != seats {
		return fmt.Errorf("%w: ledger roster has %d balances and %d addresses for %d seats",
			ErrInvalidRequest, len(balances), len(addrs), seats)
	}
	if a := addrs[req.HumanChair]; a != "" && !strings.EqualFold(a, req.Address) {
		return fmt.Errorf("%w: chair %d belongs to %s", ErrInvalidRequest, req.HumanChair, a)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Tournament, error) {
	return s.repo.Get(ctx, id)
}

// Finish 只有本人能结束自己的锦标赛
func (s *Service) Finish(ctx context.Context, id, address string) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !strings.EqualFold(t.Address, address) {
		return ErrNotOwner
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.OnFinished != nil {
		s.OnFinished(t)
	}
	utils.Log.Info("tournament finished", "id", id, "player", address)
	return nil
}

// Complete 会话分出胜负后删除记录；记录已过期不算错误，也不回调 OnFinished
func (s *Service) Complete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	utils.Log.Info("tournament completed", "id", id)
	return nil
}
