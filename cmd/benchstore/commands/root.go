package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dualstore-benchmark/internal/config"
	"dualstore-benchmark/internal/engine"
	"dualstore-benchmark/internal/metrics"
	"dualstore-benchmark/internal/store"
	"dualstore-benchmark/internal/util"
)

var (
	// Global flags
	configPath        string
	storeTarget       string
	relationalBackend string
	showLatencies     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "benchstore",
	Short: "Load and compare the same order data across a relational and a document store",
	Long: `benchstore imports spreadsheet order data into a relational store
(postgres or mysql) and a mongo document store, and runs the equivalent
query, update and deletion operations against either or both.

Results print as indented JSON; pass --latencies to also print the
per-stage latency summary.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return util.InitLogger()
	},
}

// Execute runs the root command
func Execute() {
	defer util.SyncLogger()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&storeTarget, "store", "dual", "Store(s) to run against (relational, document, or dual)")
	rootCmd.PersistentFlags().StringVar(&relationalBackend, "relational-backend", "", "Relational backend (postgres or mysql), overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&showLatencies, "latencies", false, "Print the per-stage latency summary")
}

// runtime bundles everything a subcommand needs: config, connected
// stores behind the engine, and the latency recorder.
type runtime struct {
	cfg      *config.Config
	eng      *engine.Engine
	recorder *metrics.LatencyRecorder
	closers  []func()
}

// newRuntime loads config and connects only the stores the target needs.
// The relational schema and document indexes are ensured on every
// connection; both are idempotent.
func newRuntime(ctx context.Context, target engine.Target) (*runtime, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	log := util.GetLogger()
	recorder := metrics.NewLatencyRecorder()
	obs := &metrics.LogObserver{Log: log, Next: recorder}

	rt := &runtime{cfg: cfg, recorder: recorder}

	var rel store.Relational
	if target.Relational() {
		backend := cfg.Databases.RelationalBackend
		if relationalBackend != "" {
			backend = relationalBackend
		}
		switch backend {
		case "postgres":
			rel, err = store.ConnectPostgres(ctx, cfg.Databases.Postgres, cfg.Import.BatchSize, obs, log)
		case "mysql":
			rel, err = store.ConnectMySQL(ctx, cfg.Databases.MySQL, cfg.Import.BatchSize, obs, log)
		default:
			err = fmt.Errorf("unknown relational backend %q (want postgres or mysql)", backend)
		}
		if err != nil {
			rt.close(ctx)
			return nil, err
		}
		rt.closers = append(rt.closers, rel.Close)
		if err := rel.EnsureSchema(ctx); err != nil {
			rt.close(ctx)
			return nil, err
		}
	}

	var doc store.Document
	if target.Document() {
		mongoStore, err := store.ConnectMongo(ctx,
			cfg.Databases.Mongo, cfg.Databases.MongoDatabase,
			cfg.Databases.ServerSelection, cfg.Databases.SocketTimeout,
			cfg.Import.BatchSize, obs, log)
		if err != nil {
			rt.close(ctx)
			return nil, err
		}
		doc = mongoStore
		rt.closers = append(rt.closers, func() { _ = mongoStore.Close(ctx) })
		if err := doc.EnsureIndexes(ctx); err != nil {
			rt.close(ctx)
			return nil, err
		}
	}

	start, end, err := cfg.StaleOrders.Window()
	if err != nil {
		rt.close(ctx)
		return nil, err
	}
	stale := store.StalePolicy{
		WindowStart:   start,
		WindowEnd:     end,
		MinOrderValue: cfg.StaleOrders.MinOrderValue,
		Address:       cfg.StaleOrders.Address,
		City:          cfg.StaleOrders.City,
		State:         cfg.StaleOrders.State,
		ZipCode:       cfg.StaleOrders.ZipCode,
	}

	rt.eng = engine.New(rel, doc, stale, log)
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// finish prints the latency summary when requested.
func (rt *runtime) finish() error {
	if !showLatencies {
		return nil
	}
	return printJSON(rt.recorder.Summary())
}

func parseTarget() (engine.Target, error) {
	return engine.ParseTarget(storeTarget)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
