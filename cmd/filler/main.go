// Command filler runs the cross-chain intent filler: it admits orders
// discovered on destination chains into the OrderScheduler, executes them
// through FillStrategy, and drives redeem-escrow cancellation through the
// Canceller state machine. Composition and process lifecycle only — every
// domain rule lives in pkg/scheduler, pkg/fillstrategy, pkg/canceller and
// their collaborators.
package main

import (
	"context"
	"crypto/ecdsa"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	dbm "github.com/cometbft/cometbft-db"
	"gopkg.in/yaml.v3"

	"github.com/hyperfill/intent-filler/pkg/bridgehost"
	"github.com/hyperfill/intent-filler/pkg/canceller"
	"github.com/hyperfill/intent-filler/pkg/confirmation"
	"github.com/hyperfill/intent-filler/pkg/contractsvc"
	"github.com/hyperfill/intent-filler/pkg/evmclient"
	"github.com/hyperfill/intent-filler/pkg/fillerconfig"
	"github.com/hyperfill/intent-filler/pkg/fillstrategy"
	"github.com/hyperfill/intent-filler/pkg/gateway"
	"github.com/hyperfill/intent-filler/pkg/metrics"
	"github.com/hyperfill/intent-filler/pkg/monitor"
	"github.com/hyperfill/intent-filler/pkg/registry"
	"github.com/hyperfill/intent-filler/pkg/scheduler"
	"github.com/hyperfill/intent-filler/pkg/statusstream"
	"github.com/hyperfill/intent-filler/pkg/store"
	"github.com/hyperfill/intent-filler/pkg/swap"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		registryPath   = flag.String("registry", getEnv("FILLER_REGISTRY_FILE", ""), "Path to the chain registry YAML fixture")
		policyPath     = flag.String("confirmation-policy", getEnv("FILLER_CONFIRMATION_POLICY_FILE", ""), "Path to the confirmation policy YAML file")
		listenAddr     = flag.String("listen", getEnv("FILLER_LISTEN_ADDR", ":8090"), "HTTP listen address for /health and /metrics")
		dataDir        = flag.String("data-dir", getEnv("FILLER_DATA_DIR", "./data"), "Directory for the canceller's durable checkpoint store")
		maxConcurrent  = flag.Int("max-concurrent-orders", getEnvInt("FILLER_MAX_CONCURRENT_ORDERS", 16), "Maximum orders InFlight at once")
		paraID         = flag.Uint64("para-id", uint64(getEnvInt("FILLER_PARA_ID", 0)), "Bridge host parachain identifier")
		showHelp       = flag.Bool("help", false, "Show this help message")
	)
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	if *registryPath == "" {
		log.Fatal("filler: --registry (or FILLER_REGISTRY_FILE) is required")
	}

	chainRegistry, chainSpecs, err := loadChainRegistry(*registryPath)
	if err != nil {
		log.Fatalf("filler: load chain registry: %v", err)
	}

	policy := confirmation.NewPolicy(nil)
	if *policyPath != "" {
		policy, err = loadConfirmationPolicy(*policyPath)
		if err != nil {
			log.Fatalf("filler: load confirmation policy: %v", err)
		}
	} else {
		log.Println("filler: no --confirmation-policy given, every chain requires explicit confirmations (GetConfirmationBlocks will error)")
	}

	clients, err := dialChains(chainSpecs)
	if err != nil {
		log.Fatalf("filler: dial chains: %v", err)
	}

	privateKey, err := loadFillerKey()
	if err != nil {
		log.Fatalf("filler: load private key: %v", err)
	}

	contracts := contractsvc.New(clients, chainRegistry)
	swapRouter := swap.New(clients, chainRegistry)
	gw := gateway.New(fillerconfig.DefaultGatewayConfig(), clients, chainRegistry, swapRouter, contracts, *paraID)
	gw.SetBridgeChain(newConfiguredBridgeChain())

	strategy, err := fillstrategy.New(clients, chainRegistry, contracts, gw, policy, privateKey)
	if err != nil {
		log.Fatalf("filler: build fill strategy: %v", err)
	}

	metricsReg := metrics.New()

	cfg := fillerconfig.DefaultFillerConfig(policy)
	cfg.MaxConcurrentOrders = *maxConcurrent

	sched := scheduler.New(cfg, clients, chainRegistry, []*fillstrategy.Strategy{strategy}, nil)
	sched.SetMetrics(metricsReg)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("filler: scheduler stopped: %v", err)
		}
	}()

	wireOrderDiscovery(ctx, &wg, sched, *maxConcurrent)
	wireCanceller(ctx, &wg, *dataDir, chainRegistry, metricsReg)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","pending":%d,"in_flight":%d}`, sched.PendingLen(), sched.InFlightCount())
	})
	mux.Handle("/metrics", metricsReg.Handler())

	httpServer := &http.Server{Addr: *listenAddr, Handler: mux}
	go func() {
		log.Printf("filler: HTTP listening on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("filler: http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("filler: shutting down")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("filler: http server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("filler: stopped")
}

// wireOrderDiscovery starts EventMonitor if an Indexer backend is
// configured. Indexer backend implementation is out of core scope (spec.md
// §1 Non-goals); without one, the filler can still serve /health and
// /metrics and process orders admitted some other way (e.g. a future
// gRPC/HTTP admission endpoint), but order discovery is disabled.
func wireOrderDiscovery(ctx context.Context, wg *sync.WaitGroup, sched *scheduler.Scheduler, maxConcurrent int) {
	indexer := newConfiguredIndexer()
	if indexer == nil {
		log.Println("filler: no indexer backend configured, order discovery DISABLED")
		return
	}

	windowSize := maxConcurrent * 4
	mon := monitor.New(indexer, windowSize, windowSize)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mon.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("filler: monitor stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-mon.Events():
				if !ok {
					return
				}
				if ev.IsNewOrder() {
					if err := sched.Admit(ctx, ev.Order); err != nil {
						log.Printf("filler: admit order: %v", err)
					}
				}
			}
		}
	}()
}

// newConfiguredIndexer returns the monitor.Indexer backend to subscribe
// to, or nil if none is configured. Left unimplemented here on purpose:
// the indexer backend (websocket subscription, log polling against a
// specific IntentGateway deployment) is an external collaborator per
// spec.md §1 Non-goals, supplied by whoever deploys this binary.
func newConfiguredIndexer() monitor.Indexer {
	return nil
}

// wireCanceller builds a Canceller if both a BridgeChain and a
// statusstream.Provider are configured. BridgeChain (hyperbridge
// consensus/proof generation) and the status stream's upstream source are
// external collaborators per spec.md §1 Non-goals; without both,
// cancellation requests cannot be serviced. canceller.Run is invoked per
// cancellation request by an admin/API surface out of core scope, not as
// a long-running background loop, so this only prepares the Canceller and
// logs readiness.
func wireCanceller(_ context.Context, _ *sync.WaitGroup, dataDir string, reg registry.ChainRegistry, metricsReg *metrics.Registry) {
	bridge := newConfiguredBridgeChain()
	statuses := newConfiguredStatusProvider()
	if bridge == nil || statuses == nil {
		log.Println("filler: no bridge chain / status provider configured, cancellation DISABLED")
		return
	}

	db, err := dbm.NewGoLevelDB("filler-canceller", dataDir)
	if err != nil {
		log.Printf("filler: open canceller store: %v, cancellation DISABLED", err)
		return
	}
	checkpoints := store.NewCometBFTStore(db)

	c, err := canceller.New(fillerconfig.DefaultCancellerConfig(), checkpoints, bridge, reg, nil, nil, statuses)
	if err != nil {
		log.Printf("filler: build canceller: %v, cancellation DISABLED", err)
		return
	}
	c.SetMetrics(metricsReg)
	log.Println("filler: cancellation worker ready")
}

// newConfiguredBridgeChain returns the hyperbridge BridgeChain
// implementation to use, or nil if none is configured. Left unimplemented
// here on purpose, see wireCanceller's doc comment. Shared by both the
// canceller and the gateway's estimate_gas_for_post simulation, since both
// consult the same external hyperbridge collaborator.
func newConfiguredBridgeChain() bridgehost.BridgeChain { return nil }

// newConfiguredStatusProvider returns the statusstream.Provider to feed
// the Canceller's SUBSCRIBE_STATUS step, or nil if none is configured.
// A concrete implementation needs a statusstream.Source backed by
// whatever surfaces hyperbridge's RequestStatus for a commitment (an
// indexer, hyperbridge's own API) — also out of core scope.
func newConfiguredStatusProvider() statusstream.Provider { return nil }

func loadFillerKey() (*ecdsa.PrivateKey, error) {
	hexKey := os.Getenv("FILLER_PRIVATE_KEY")
	if hexKey == "" {
		return nil, fmt.Errorf("FILLER_PRIVATE_KEY is required")
	}
	return crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
}

type chainFixture struct {
	StateMachineID string `yaml:"state_machine_id"`
	RPCURL         string `yaml:"rpc_url"`
	ChainID        uint64 `yaml:"chain_id"`
}

func loadChainRegistry(path string) (registry.ChainRegistry, []chainFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.LoadChainRegistryYAML(data)
	if err != nil {
		return nil, nil, err
	}
	var fixtures []chainFixture
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, nil, fmt.Errorf("filler: parse chain fixtures: %w", err)
	}
	return reg, fixtures, nil
}

func loadConfirmationPolicy(path string) (*confirmation.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return confirmation.LoadPolicyYAML(data)
}

func dialChains(specs []chainFixture) (evmclient.Registry, error) {
	clients := make(map[string]*evmclient.Client, len(specs))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, spec := range specs {
		c, err := evmclient.Dial(ctx, spec.RPCURL, int64(spec.ChainID))
		if err != nil {
			return evmclient.Registry{}, fmt.Errorf("dial %s: %w", spec.StateMachineID, err)
		}
		clients[spec.StateMachineID] = c
	}
	return evmclient.NewRegistry(clients), nil
}

func printHelp() {
	fmt.Println("Hyperfill intent filler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  filler [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --registry=PATH               Chain registry YAML fixture (required)")
	fmt.Println("  --confirmation-policy=PATH     Confirmation policy YAML file")
	fmt.Println("  --listen=ADDR                  HTTP listen address (default :8090)")
	fmt.Println("  --data-dir=PATH                Canceller checkpoint store directory")
	fmt.Println("  --max-concurrent-orders=N      Scheduler concurrency cap (default 16)")
	fmt.Println("  --para-id=N                    Bridge host parachain identifier")
	fmt.Println("  --help                         Show this help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  FILLER_PRIVATE_KEY             Hex-encoded filler wallet private key (required)")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
