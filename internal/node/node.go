// Package node provides a reusable ledger node that can be embedded
// in any binary (daemon, tests, tools).
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Klingon-tech/nfb-ledger/config"
	"github.com/Klingon-tech/nfb-ledger/internal/hooks"
	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/internal/metadata"
	"github.com/Klingon-tech/nfb-ledger/internal/rpc"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/rs/zerolog"
)

// References of the resolvers and handlers every node registers.
var (
	SeriesNameResolverRef = crypto.DeriveAddress("resolver", "series-name")
	ImageResolverRef      = crypto.DeriveAddress("resolver", "image")
	WalletCapRef          = crypto.DeriveAddress("handler", "walletcap")
	PurchaseLogRef        = crypto.DeriveAddress("handler", "purchase-log")
)

// Node is a fully-initialized ledger node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db     storage.DB
	ledger *ledger.Ledger

	rpcServer *rpc.Server

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates and initializes a new Node: logger, storage, genesis,
// resolvers, handlers and the RPC server.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Set address HRP ──────────────────────────────────────────
	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	// ── 2. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "nfbd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("backend", cfg.Ledger.Backend).
		Msg("Starting NFB ledger node")

	// ── 3. Genesis ──────────────────────────────────────────────────
	genesis, err := buildGenesis(cfg)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	// ── 4. Open storage ─────────────────────────────────────────────
	db, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	// ── 5. Ledger ───────────────────────────────────────────────────
	l, err := ledger.New(db, genesis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	l.SetMintLimit(cfg.Ledger.MaxMint)
	registerExtensions(l, cfg, logger)

	// ── 6. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcAddr := cfg.RPC.ListenAddr()
		rpcServer = rpc.New(rpcAddr, l, cfg.RPC)
		rpcServer.SetNetwork(string(cfg.Network))
		if err := rpcServer.Start(); err != nil {
			db.Close()
			return nil, fmt.Errorf("start RPC at %s: %w", rpcAddr, err)
		}
		logger.Info().Str("addr", rpcServer.Addr()).Msg("RPC server started")
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		ledger:    l,
		rpcServer: rpcServer,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// registerExtensions makes the built-in resolvers and purchase hooks
// reachable under their well-known references.
func registerExtensions(l *ledger.Ledger, cfg *config.Config, logger zerolog.Logger) {
	l.RegisterResolver(SeriesNameResolverRef, metadata.SeriesNameResolver{})
	l.RegisterResolver(ImageResolverRef, &metadata.ImageResolver{
		Name:               cfg.Metadata.Name,
		Image:              cfg.Metadata.Image,
		IncludeEditionName: cfg.Metadata.EditionName,
	})
	l.RegisterHandler(PurchaseLogRef, hooks.NewPurchaseLog())
	if cfg.Hooks.WalletCap > 0 {
		l.RegisterHandler(WalletCapRef, &hooks.WalletCap{Limit: cfg.Hooks.WalletCap})
	}

	logger.Info().
		Str("series_name", SeriesNameResolverRef.String()).
		Str("image", ImageResolverRef.String()).
		Msg("Metadata resolvers registered")
	ev := logger.Info().Str("purchase_log", PurchaseLogRef.String())
	if cfg.Hooks.WalletCap > 0 {
		ev = ev.Str("wallet_cap", WalletCapRef.String()).Uint64("limit", cfg.Hooks.WalletCap)
	}
	ev.Msg("Purchase handlers registered")
}

// Start logs a ledger summary. The RPC server is already serving.
func (n *Node) Start() error {
	var info *ledger.Info
	err := n.ledger.View(func(st *ledger.State) error {
		var err error
		info, err = st.Info()
		return err
	})
	if err != nil {
		return fmt.Errorf("read ledger info: %w", err)
	}

	n.logger.Info().
		Int("series", info.Series).
		Int("sale_configs", info.SaleConfigs).
		Int("payment_tokens", info.PaymentTokens).
		Uint64("events", info.Events).
		Uint64("native_supply", info.NativeSupply).
		Str("rpc", n.RPCAddr()).
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order. Safe to call twice.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		n.cancel()

		if n.rpcServer != nil {
			if err := n.rpcServer.Stop(); err != nil {
				n.logger.Warn().Err(err).Msg("RPC shutdown")
			}
		}
		if n.db != nil {
			if err := n.db.Close(); err != nil {
				n.logger.Warn().Err(err).Msg("Database close")
			}
		}

		n.logger.Info().Msg("Goodbye!")
	})
}

// Ledger returns the node's ledger.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Context is cancelled when the node stops.
func (n *Node) Context() context.Context {
	return n.ctx
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}
