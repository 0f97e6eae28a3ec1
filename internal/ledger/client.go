package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"CoolerPoker/internal/utils"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrNoContract      = errors.New("no ledger contract")
	ErrTxFailed        = errors.New("ledger transaction reverted")
	ErrReceiptTimeout  = errors.New("ledger receipt not confirmed in time")
	ErrMalformedResult = errors.New("malformed ledger result")
)

// Backend 链节点；*ethclient.Client 满足该接口
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Options struct {
	PollInterval time.Duration
	PollRetries  int
	Clock        quartz.Clock
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.PollRetries <= 0 {
		o.PollRetries = 60
	}
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	return o
}

// Client 用一个服务端私钥签名所有写交易
type Client struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	opts    Options
	log     *log.Logger

	mu      sync.Mutex // 串行化 nonce 分配
	chainID *big.Int
}

// Dial 连接 RPC 节点
func Dial(ctx context.Context, rpcURL, hexKey string, opts Options) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return NewClient(ec, hexKey, opts)
}

func NewClient(backend Backend, hexKey string, opts Options) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("ledger key: %w", err)
	}
	return &Client{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		opts:    opts.withDefaults(),
		log:     utils.Log.WithPrefix("ledger"),
	}, nil
}

// From 签名账户地址
func (c *Client) From() common.Address {
	return c.from
}

// CheckChain 确认节点在预期的链上
func (c *Client) CheckChain(ctx context.Context, want int64) error {
	got, err := c.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		return fmt.Errorf("ledger node is on chain %s, want %d", got, want)
	}
	return nil
}

// Table 绑定到某个锦标赛合约
func (c *Client) Table(contract string) (*Table, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("%w: %q", ErrNoContract, contract)
	}
	return &Table{c: c, contract: common.HexToAddress(contract)}, nil
}

// Roster 读取合约里按座位排列的筹码与地址
func (c *Client) Roster(ctx context.Context, contract string) ([]int64, []string, error) {
	t, err := c.Table(contract)
	if err != nil {
		return nil, nil, err
	}
	return t.Players(ctx)
}

// SeedRoster 给还没有名单的合约写入初始筹码
func (c *Client) SeedRoster(ctx context.Context, contract string, balances []int64, addresses []string) error {
	t, err := c.Table(contract)
	if err != nil {
		return err
	}
	return t.SetPlayers(ctx, balances, addresses)
}

// ---------------------
//     TRANSACTIONS
// ---------------------

func (c *Client) transact(ctx context.Context, to common.Address, method string, args ...any) (*types.Receipt, error) {
	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	tx, err := c.signAndSend(ctx, to, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	c.log.Info("tx sent", "method", method, "hash", tx.Hash().Hex(), "nonce", tx.Nonce())

	receipt, err := c.waitReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, tx.Hash().Hex(), err)
	}
	c.log.Info("tx confirmed", "method", method, "hash", tx.Hash().Hex(), "block", receipt.BlockNumber, "gas", receipt.GasUsed)
	return receipt, nil
}

func (c *Client) signAndSend(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chainID == nil {
		id, err := c.backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		c.chainID = id
	}
	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	return signed, nil
}

// waitReceipt 按 PollInterval 轮询，最多 PollRetries 次
func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	for attempt := 1; ; attempt++ {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, ErrTxFailed
			}
			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			return nil, err
		}

		if attempt >= c.opts.PollRetries {
			return nil, ErrReceiptTimeout
		}
		timer := c.opts.Clock.NewTimer(c.opts.PollInterval, "ledger", "receipt")
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) call(ctx context.Context, to common.Address, method string, args ...any) ([]any, error) {
	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsedABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResult, method, err)
	}
	return values, nil
}
