package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"custody/app/config"
	"custody/app/ledger"
	"custody/app/models"
	"custody/app/network"
	"custody/app/network/cellchain"
	"custody/app/network/evm"
	"custody/app/network/fastchain"
	"custody/app/notifier"
	"custody/app/price"
	"custody/app/reconcile"
	"custody/app/referral"
	"custody/app/server"
	"custody/app/storage/database"
	"custody/app/swap"
	swapcell "custody/app/swap/cellchain"
	swapevm "custody/app/swap/evm"
	swapfast "custody/app/swap/fastchain"
	"custody/app/wallet"
	"custody/pkg/crypto"
	"custody/pkg/eth"
	"custody/pkg/log"
	"custody/pkg/web"
	webware "custody/pkg/web/middleware"
)

const (
	maxRequestsAllowed    = 1000
	serverShutdownTimeout = 30 * time.Second
	dialTimeout           = 30 * time.Second
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		panic(err)
	}

	zlog := log.ConfigureLogger(cfg.Logging)
	defer func() {
		_ = zlog.Sync() // flush the logger
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// connect to the database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = db.Close()
	}()

	sealer, err := crypto.NewSealer(cfg.Secrets.MasterKey, cfg.Secrets.Salt)
	if err != nil {
		log.Fatal(err)
	}

	signupNetworks, err := cfg.Networks()
	if err != nil {
		log.Fatal(err)
	}

	// connect to the chains
	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	ethClient, err := eth.Dial(dialCtx, cfg.Ethereum.NodeURL)
	if err != nil {
		log.Fatal("failed connection to eth node: ", err)
	}
	defer ethClient.Close()

	bscClient, err := eth.Dial(dialCtx, cfg.BSC.NodeURL)
	if err != nil {
		log.Fatal("failed connection to bsc node: ", err)
	}
	defer bscClient.Close()

	solClient := rpc.New(cfg.Solana.RPCURL)
	defer func() {
		_ = solClient.Close()
	}()

	lite, err := cellchain.DialLite(dialCtx, cfg.TON.LiteConfigURL)
	if err != nil {
		log.Fatal("failed connection to ton liteservers: ", err)
	}
	cancelDial()

	ethAdapter := evm.New(models.ETH, cfg.Ethereum, ethClient)
	bscAdapter := evm.New(models.BSC, cfg.BSC, bscClient)
	solAdapter := fastchain.New(cfg.Solana, solClient)
	tonAdapter := cellchain.New(
		cfg.TON,
		lite,
		cellchain.NewIndexer(cfg.TON.APIURL, cfg.TON.APIKey),
		cellchain.NewSequence(),
	)
	networks := network.NewRegistry(ethAdapter, bscAdapter, solAdapter, tonAdapter)

	jupiter, err := swapfast.NewRouter(cfg.Swap, solAdapter)
	if err != nil {
		log.Fatal(err)
	}
	dedust, err := swapcell.NewRouter(cfg.Swap, tonAdapter)
	if err != nil {
		log.Fatal(err)
	}
	swaps := swap.NewRegistry(
		swapevm.NewRouter(cfg.Swap, ethAdapter),
		swapevm.NewRouter(cfg.Swap, bscAdapter),
		jupiter,
		dedust,
	)

	checks := map[string]server.Check{"database": db.Ping}

	// the shared price tier is optional
	var shared price.Shared
	if cfg.Price.RedisAddr != "" {
		redisCache, err := price.DialRedis(ctx, cfg.Price.RedisAddr)
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			_ = redisCache.Close()
		}()
		shared = redisCache
		checks["redis"] = redisCache.Ping
	}
	priceSvc := price.NewManager(cfg.Price, shared)

	ledgerSvc := &ledger.Manager{DB: db}
	referralSvc := &referral.Manager{DB: db}
	notifierSvc := notifier.NewManager()

	walletSvc := &wallet.Manager{
		DB:             db,
		Ledger:         ledgerSvc,
		Networks:       networks,
		Swaps:          swaps,
		Prices:         priceSvc,
		Sealer:         sealer,
		ServiceFeeBps:  cfg.Swap.ServiceFeeBps,
		SignupNetworks: signupNetworks,
	}

	scheduler := reconcile.NewManager(
		cfg.Reconcile,
		ledgerSvc,
		networks,
		priceSvc,
		referralSvc,
		walletSvc,
		notifierSvc,
	)
	if err = scheduler.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer scheduler.Stop()

	router := newRouter()
	ops := server.Ops{
		Router:   router,
		Notifier: notifierSvc,
		Wallets:  walletSvc,
		Secret:   cfg.Secrets.API,
		Checks:   checks,
	}
	ops.Route()

	// start notifier and an http server and remember to shut it down
	srv := &http.Server{
		Addr:    cfg.OpsAddr,
		Handler: router,
	}
	go notifierSvc.Start(ctx)
	go web.Start(srv)
	defer web.Shutdown(srv, serverShutdownTimeout)

	log.Infow("custody service started", "networks", networks.Networks(), "swaps", swaps.Networks())

	// wait for the program exit
	<-ctx.Done()
}

func newRouter() chi.Router {
	router := chi.NewRouter()

	// add middleware
	router.Use(
		middleware.Throttle(maxRequestsAllowed),
		middleware.RealIP,
		middleware.RequestID,
		webware.ZapLogger,
		webware.Recoverer,
	)

	return router
}
