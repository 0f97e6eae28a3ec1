package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CoolerPoker/config"
	"CoolerPoker/internal/auth"
	"CoolerPoker/internal/game/manager"
	"CoolerPoker/internal/game/table"
	"CoolerPoker/internal/ledger"
	"CoolerPoker/internal/middleware"
	"CoolerPoker/internal/storage"
	"CoolerPoker/internal/tournament"
	"CoolerPoker/internal/utils"
	"CoolerPoker/internal/websocket"

	"github.com/alecthomas/kong"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

var CLI struct {
	Config   string `short:"c" default:"config/config.yaml" help:"Path to YAML configuration file"`
	Addr     string `short:"a" help:"Listen address (overrides server.port)"`
	LogLevel string `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("coolerpoker"),
		kong.Description("Heads-up-against-bots poker tournaments with on-chain settlement."),
	)
	utils.Init(CLI.LogLevel)

	if err := config.Load(CLI.Config); err != nil {
		utils.Log.Error("config", "err", err)
		kctx.Exit(1)
	}
	if CLI.Addr != "" {
		config.C.Server.Port = CLI.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &config.C); err != nil {
		utils.Log.Error("server stopped", "err", err)
		kctx.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	//-------------------------------------------------------
	// 1. 存储
	//-------------------------------------------------------
	repo, nonces, cleanup, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	//-------------------------------------------------------
	// 2. 账本（可选）
	//-------------------------------------------------------
	var lc *ledger.Client
	if cfg.LedgerEnabled() {
		lc, err = ledger.Dial(ctx, cfg.Ledger.RPCURL, cfg.Ledger.PrivateKey, ledger.Options{
			PollInterval: cfg.Ledger.PollInterval,
			PollRetries:  cfg.Ledger.PollRetries,
		})
		if err != nil {
			return err
		}
		if cfg.Ledger.ChainID != 0 {
			if err := lc.CheckChain(ctx, cfg.Ledger.ChainID); err != nil {
				return err
			}
		}
		utils.Log.Info("ledger enabled", "rpc", cfg.Ledger.RPCURL, "signer", lc.From().Hex())
	}

	//-------------------------------------------------------
	// 3. Hub（必须最先启动）+ GameManager
	//-------------------------------------------------------
	hub := websocket.NewHub()

	var svc *tournament.Service
	gameMgr := manager.NewGameManager(hub, manager.Config{
		SmallBlind:      cfg.Game.SmallBlind,
		BigBlind:        cfg.Game.BigBlind,
		StartingBalance: cfg.Game.StartingBalance,
		Session: manager.Options{
			BotDelay:       cfg.Game.BotDelay,
			ResolveTimeout: cfg.Ledger.ResolveTimeout,
			Seed:           cfg.Game.Seed,
		},
		Resolver: func(t *tournament.Tournament) manager.Resolver {
			if lc == nil || t.ContractAddress == "" {
				return nil
			}
			tbl, err := lc.Table(t.ContractAddress)
			if err != nil {
				utils.Log.Warn("ledger disabled for tournament", "id", t.ID, "err", err)
				return nil
			}
			return tbl
		},
		// 分出胜负的锦标赛删除记录，玩家可以开新局
		OnTournamentOver: func(t *tournament.Tournament) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := svc.Complete(ctx, t.ID); err != nil {
				utils.Log.Error("complete tournament", "id", t.ID, "err", err)
			}
		},
	})
	hub.OnIncoming = gameMgr.HandlePlayerMessage

	//-------------------------------------------------------
	// 4. 锦标赛服务
	//-------------------------------------------------------
	var roster tournament.Roster
	if lc != nil {
		roster = lc
	}
	svc = tournament.NewService(repo, cfg.Game.TournamentTTL, roster)
	svc.DefaultMode = table.GameMode(cfg.Game.Mode)
	svc.DefaultBotCount = cfg.Game.BotCount
	svc.StartingBalance = cfg.Game.StartingBalance
	// 💡 建局回调：让 GameManager 接手
	svc.OnCreated = gameMgr.StartSession
	svc.OnFinished = func(t *tournament.Tournament) { gameMgr.StopSession(t.ID) }

	//-------------------------------------------------------
	// 5. 路由
	//-------------------------------------------------------
	secret := []byte(cfg.JWT.Secret)
	tokenTTL := time.Duration(cfg.JWT.ExpireHours) * time.Hour
	r := newRouter(cfg.Server.Mode, hub, auth.NewHandler(nonces, secret, tokenTTL), tournament.NewHandler(svc), secret)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	//-------------------------------------------------------
	// 6. 启动：hub、HTTP、收到信号后依次关闭
	//-------------------------------------------------------
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run()
		return nil
	})
	g.Go(func() error {
		utils.Log.Info("server running", "addr", srv.Addr, "storage", cfg.Storage.Driver, "ledger", lc != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		gameMgr.StopAll()
		hub.Close()
		return err
	})
	return g.Wait()
}

func newRouter(mode string, hub *websocket.Hub, ah *auth.Handler, th *tournament.Handler, secret []byte) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ah.Register(r.Group("/auth"))

	authed := r.Group("/", middleware.JwtAuthMiddleware(secret))
	{
		authed.GET("/ws", websocket.ServeWS(hub))
		th.Register(authed)
	}
	return r
}

// openStorage 按 storage.driver 选择锦标赛存储与 nonce 存储
func openStorage(ctx context.Context, cfg *config.Config) (tournament.Repo, auth.NonceStore, func(), error) {
	switch cfg.Storage.Driver {
	case "redis":
		rdb, err := storage.InitRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, nil, err
		}
		return tournament.NewRedisRepo(rdb), auth.NewRedisNonceStore(rdb), func() { _ = rdb.Close() }, nil

	case "postgres":
		db, err := storage.InitPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := tournament.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return tournament.NewPostgresRepo(db), auth.NewMemoryNonceStore(), func() { _ = db.Close() }, nil

	default:
		utils.Log.Warn("using in-memory storage; tournaments are lost on restart")
		return tournament.NewMemoryRepo(), auth.NewMemoryNonceStore(), func() {}, nil
	}
}
