package ledger

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"CoolerPoker/internal/game/engine"
	"CoolerPoker/internal/game/table"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Table 一个锦标赛合约的绑定，实现 manager.Resolver
type Table struct {
	c        *Client
	contract common.Address
}

func (t *Table) Address() common.Address {
	return t.contract
}

// SetPlayers 写入按座位排列的筹码与地址；空地址写零地址（机器人）
func (t *Table) SetPlayers(ctx context.Context, balances []int64, addresses []string) error {
	if len(balances) != len(addresses) {
		return fmt.Errorf("setPlayers: %d balances for %d addresses", len(balances), len(addresses))
	}
	amounts, err := toBig(balances)
	if err != nil {
		return fmt.Errorf("setPlayers: %w", err)
	}
	addrs := make([]common.Address, len(addresses))
	for i, a := range addresses {
		if a == "" {
			continue
		}
		if !common.IsHexAddress(a) {
			return fmt.Errorf("setPlayers: bad address %q at seat %d", a, i)
		}
		addrs[i] = common.HexToAddress(a)
	}
	_, err = t.c.transact(ctx, t.contract, methodSetPlayers, amounts, addrs)
	return err
}

// Players 读取名单；零地址还原为空串
func (t *Table) Players(ctx context.Context) ([]int64, []string, error) {
	values, err := t.c.call(ctx, t.contract, methodGetPlayers)
	if err != nil {
		return nil, nil, err
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("%w: getPlayers returned %d values", ErrMalformedResult, len(values))
	}
	rawBalances, ok1 := values[0].([]*big.Int)
	rawAddrs, ok2 := values[1].([]common.Address)
	if !ok1 || !ok2 || len(rawBalances) != len(rawAddrs) {
		return nil, nil, fmt.Errorf("%w: getPlayers shape", ErrMalformedResult)
	}
	balances, err := fromBig(rawBalances)
	if err != nil {
		return nil, nil, err
	}
	addrs := make([]string, len(rawAddrs))
	for i, a := range rawAddrs {
		if a != (common.Address{}) {
			addrs[i] = a.Hex()
		}
	}
	return balances, addrs, nil
}

// Resolve 提交摊牌并等待确认后读回结果
func (t *Table) Resolve(ctx context.Context, req engine.ShowdownRequest) (engine.ShowdownResult, error) {
	if err := t.CalculateWinners(ctx, req); err != nil {
		return engine.ShowdownResult{}, err
	}
	res, err := t.HandResult(ctx)
	if err != nil {
		return engine.ShowdownResult{}, err
	}
	if len(res.Balances) != len(req.Hands) {
		return engine.ShowdownResult{}, fmt.Errorf("%w: %d balances for %d seats", ErrMalformedResult, len(res.Balances), len(req.Hands))
	}
	t.c.log.Info("hand resolved", "contract", t.contract.Hex(), "hand", req.HandNumber, "winner", res.WinnerIndex, "ties", res.TiePlayers)
	return res, nil
}

// CalculateWinners 合约只接受空牌面或完整五张；提前结束的牌局按翻牌前提交
func (t *Table) CalculateWinners(ctx context.Context, req engine.ShowdownRequest) error {
	board := req.Board
	cards, err := table.ParseCards(board)
	if err != nil {
		return fmt.Errorf("calculateWinners: %w", err)
	}
	if len(cards) != 0 && len(cards) != 5 {
		board = ""
	}
	bets, err := toBig(req.Bets)
	if err != nil {
		return fmt.Errorf("calculateWinners: %w", err)
	}
	_, err = t.c.transact(ctx, t.contract, methodCalculateWinners, req.Hands, board, bets)
	return err
}

// HandResult 读取最近一手的结算结果
func (t *Table) HandResult(ctx context.Context) (engine.ShowdownResult, error) {
	values, err := t.c.call(ctx, t.contract, methodGetHandResult)
	if err != nil {
		return engine.ShowdownResult{}, err
	}
	if len(values) != 3 {
		return engine.ShowdownResult{}, fmt.Errorf("%w: getHandResult returned %d values", ErrMalformedResult, len(values))
	}
	rawBalances, ok1 := values[0].([]*big.Int)
	rawWinner, ok2 := values[1].(*big.Int)
	rawTies, ok3 := values[2].([]*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return engine.ShowdownResult{}, fmt.Errorf("%w: getHandResult shape", ErrMalformedResult)
	}

	balances, err := fromBig(rawBalances)
	if err != nil {
		return engine.ShowdownResult{}, err
	}
	winner, err := toInt64(rawWinner)
	if err != nil {
		return engine.ShowdownResult{}, err
	}
	ties, err := fromBig(rawTies)
	if err != nil {
		return engine.ShowdownResult{}, err
	}
	return engine.ShowdownResult{Balances: balances, WinnerIndex: winner, TiePlayers: ties}, nil
}

// TournamentWinner 合约判定的冠军地址；未结束时 finished=false
func (t *Table) TournamentWinner(ctx context.Context) (bool, string, error) {
	values, err := t.c.call(ctx, t.contract, methodGetWinner)
	if err != nil {
		return false, "", err
	}
	if len(values) != 2 {
		return false, "", fmt.Errorf("%w: getTournamentWinner returned %d values", ErrMalformedResult, len(values))
	}
	finished, ok1 := values[0].(bool)
	winner, ok2 := values[1].(common.Address)
	if !ok1 || !ok2 {
		return false, "", fmt.Errorf("%w: getTournamentWinner shape", ErrMalformedResult)
	}
	if !finished || winner == (common.Address{}) {
		return finished, "", nil
	}
	return true, winner.Hex(), nil
}

// Elimination 某个地址的淘汰记录；没有记录时 found=false
func (t *Table) Elimination(ctx context.Context, address string) (engine.Elimination, bool, error) {
	if !common.IsHexAddress(address) {
		return engine.Elimination{}, false, fmt.Errorf("getPlayerElimination: bad address %q", address)
	}
	addr := common.HexToAddress(address)
	values, err := t.c.call(ctx, t.contract, methodGetElimination, addr)
	if err != nil {
		return engine.Elimination{}, false, err
	}
	if len(values) != 5 {
		return engine.Elimination{}, false, fmt.Errorf("%w: getPlayerElimination returned %d values", ErrMalformedResult, len(values))
	}
	found, ok1 := values[0].(bool)
	rawIndex, ok2 := values[1].(*big.Int)
	hand, ok3 := values[2].(string)
	opponent, ok4 := values[3].(string)
	board, ok5 := values[4].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return engine.Elimination{}, false, fmt.Errorf("%w: getPlayerElimination shape", ErrMalformedResult)
	}
	if !found {
		return engine.Elimination{}, false, nil
	}

	chair, err := toInt64(rawIndex)
	if err != nil {
		return engine.Elimination{}, false, err
	}
	e := engine.Elimination{PlayerID: -1, Chair: int(chair), Address: addr.Hex()}
	for _, f := range []struct {
		dst *[]table.Card
		raw string
	}{{&e.PlayerHand, hand}, {&e.OpponentHand, opponent}, {&e.Board, board}} {
		cards, err := table.ParseCards(f.raw)
		if err != nil {
			return engine.Elimination{}, false, fmt.Errorf("%w: getPlayerElimination: %v", ErrMalformedResult, err)
		}
		*f.dst = cards
	}
	return e, true, nil
}

// ---------------------
//      CONVERSION
// ---------------------

func toBig(values []int64) ([]*big.Int, error) {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		if v < 0 {
			return nil, fmt.Errorf("negative amount %d at seat %d", v, i)
		}
		out[i] = new(big.Int).SetInt64(v)
	}
	return out, nil
}

func fromBig(values []*big.Int) ([]int64, error) {
	out := make([]int64, len(values))
	for i, v := range values {
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// toInt64 uint256 超出 int64 视为结果错误
func toInt64(v *big.Int) (int64, error) {
	u, overflow := uint256.FromBig(v)
	if overflow || u.Sign() < 0 || !u.IsUint64() || u.Uint64() > math.MaxInt64 {
		return 0, fmt.Errorf("%w: value %s out of range", ErrMalformedResult, v)
	}
	return int64(u.Uint64()), nil
}
