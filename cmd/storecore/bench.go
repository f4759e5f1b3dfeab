package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"storecore/pkg/catalog"
	"storecore/pkg/concurrency/transaction"
	"storecore/pkg/dberror"
	"storecore/pkg/log/wal"
	"storecore/pkg/logging"
	"storecore/pkg/memory"
	"storecore/pkg/primitives"
	"storecore/pkg/storage/heap"
	"storecore/pkg/storage/page"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type benchOptions struct {
	Workers     int
	Txns        int
	Records     int
	RecordSize  int
	Table       string
	MaxAttempts int
	Backoff     time.Duration
	MetricsAddr string
}

// benchResult aggregates one run across all workers.
type benchResult struct {
	RunID     uuid.UUID
	Elapsed   time.Duration
	Latencies []time.Duration
	Committed int
	Failed    int
	Aborts    int
	Inserted  int
	Deleted   int
	Scanned   int
	Pool      memory.Stats
}

func newBenchCommand(g *globals, stdout io.Writer) *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a concurrent insert/delete/scan workload.",
		Long: `
Starts N workers against one heap table. Each worker runs M transactions;
most insert K records, every fourth scans the table and deletes one of the
worker's own records. Transactions aborted by a lock timeout or deadlock are
retried. A summary is printed when all workers finish.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.MetricsAddr == "" && g.cfg.Metrics.Enabled {
				opts.MetricsAddr = g.cfg.Metrics.Address
			}
			res, err := runBench(cmd.Context(), g, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, renderBenchResult(opts, res))
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Concurrent workers.")
	cmd.Flags().IntVar(&opts.Txns, "txns", 100, "Transactions per worker.")
	cmd.Flags().IntVar(&opts.Records, "records", 10, "Records inserted per transaction.")
	cmd.Flags().IntVar(&opts.RecordSize, "record-size", 64, "Record size in bytes.")
	cmd.Flags().StringVar(&opts.Table, "table", "bench", "Heap table to write to.")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", 10, "Attempts per transaction before it counts as failed.")
	cmd.Flags().DurationVar(&opts.Backoff, "backoff", 5*time.Millisecond, "Base delay between retries.")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve /metrics on this address while running.")
	return cmd
}

func runBench(ctx context.Context, g *globals, opts benchOptions) (*benchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Workers <= 0 || opts.Txns <= 0 || opts.Records <= 0 {
		return nil, fmt.Errorf("workers, txns and records must be positive")
	}
	if opts.RecordSize <= 0 || opts.RecordSize > heap.MaxRecordSize {
		return nil, fmt.Errorf("record-size must be in (0, %d]", heap.MaxRecordSize)
	}

	res := &benchResult{RunID: uuid.New()}
	logger := logging.WithComponent("bench").With(zap.String("run", res.RunID.String()))

	var reg prometheus.Registerer
	if opts.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		reg = registry
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: metricsMux(registry), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", opts.MetricsAddr))
	}

	cat := catalog.NewCatalog(primitives.Filepath(g.cfg.Storage.DataDir))
	defer cat.Close()

	table, err := cat.OpenHeapTable(opts.Table)
	if err != nil {
		return nil, err
	}

	walLog, err := wal.Open(g.cfg.WAL.Path, wal.Options{
		BufferSize:     g.cfg.WAL.BufferSize,
		CompressImages: g.cfg.WAL.CompressImages,
	})
	if err != nil {
		return nil, err
	}
	defer walLog.Close()

	pool := memory.NewBufferPool(cat, walLog, memory.OptionsFromConfig(g.cfg, reg))
	defer pool.Close()

	tm := transaction.NewManager(pool, walLog)
	policy := transaction.RetryPolicy{MaxAttempts: opts.MaxAttempts, Backoff: opts.Backoff}

	logger.Info("bench started",
		zap.Int("workers", opts.Workers),
		zap.Int("txns", opts.Txns),
		zap.Int("records", opts.Records),
		zap.String("table", opts.Table))

	var mu sync.Mutex
	start := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		worker := &benchWorker{
			id:    w,
			opts:  opts,
			pool:  pool,
			table: table,
		}
		eg.Go(func() error {
			for j := 0; j < opts.Txns; j++ {
				txStart := time.Now()
				aborts, err := tm.Run(egCtx, policy, func(tx *transaction.TransactionContext) error {
					return worker.step(tx, j)
				})

				mu.Lock()
				res.Aborts += aborts
				switch {
				case err == nil:
					worker.committed()
					res.Committed++
					res.Latencies = append(res.Latencies, time.Since(txStart))
				case dberror.IsAbort(err):
					res.Failed++
				}
				mu.Unlock()

				if err != nil && !dberror.IsAbort(err) {
					return err
				}
			}

			mu.Lock()
			res.Inserted += worker.inserted
			res.Deleted += worker.deleted
			res.Scanned += worker.scanned
			mu.Unlock()
			return nil
		})
	}

	err = eg.Wait()
	res.Elapsed = time.Since(start)
	res.Pool = pool.Stats()
	if err != nil {
		return nil, err
	}

	logger.Info("bench finished",
		zap.Duration("elapsed", res.Elapsed),
		zap.Int("committed", res.Committed),
		zap.Int("aborts", res.Aborts))
	return res, nil
}

func metricsMux(registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

// benchWorker runs one worker's transactions. The pending counters describe
// the latest attempt and are folded into the totals once it commits.
type benchWorker struct {
	id    int
	opts  benchOptions
	pool  *memory.BufferPool
	table *heap.HeapFile

	inserted, deleted, scanned          int
	pendingIns, pendingDel, pendingScan int
}

func (bw *benchWorker) committed() {
	bw.inserted += bw.pendingIns
	bw.deleted += bw.pendingDel
	bw.scanned += bw.pendingScan
}

func (bw *benchWorker) prefix() []byte {
	return []byte(fmt.Sprintf("w%03d:", bw.id))
}

func (bw *benchWorker) record(txn, n int) []byte {
	head := fmt.Sprintf("w%03d:t%06d:r%04d:", bw.id, txn, n)
	if len(head) >= bw.opts.RecordSize {
		return []byte(head[:bw.opts.RecordSize])
	}
	return []byte(head + strings.Repeat("x", bw.opts.RecordSize-len(head)))
}

// step runs one attempt of transaction txn.
func (bw *benchWorker) step(tx *transaction.TransactionContext, txn int) error {
	bw.pendingIns, bw.pendingDel, bw.pendingScan = 0, 0, 0
	if txn%4 == 3 {
		return bw.scanAndDelete(tx)
	}

	for n := 0; n < bw.opts.Records; n++ {
		if _, err := bw.pool.ApplyInsert(tx.ID, bw.table.ID(), bw.record(txn, n)); err != nil {
			return err
		}
	}
	bw.pendingIns = bw.opts.Records
	return nil
}

func (bw *benchWorker) scanAndDelete(tx *transaction.TransactionContext) error {
	prefix := bw.prefix()
	var victim *page.RecordID
	seen := 0

	err := bw.table.Scan(tx.ID, bw.pool, func(rid page.RecordID, rec []byte) error {
		seen++
		if victim == nil && bytes.HasPrefix(rec, prefix) {
			r := rid
			victim = &r
		}
		return nil
	})
	if err != nil {
		return err
	}

	if victim != nil {
		if _, err := bw.pool.ApplyDelete(tx.ID, *victim); err != nil {
			return err
		}
		bw.pendingDel = 1
	}
	bw.pendingScan = seen
	return nil
}

func renderBenchResult(opts benchOptions, res *benchResult) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)
	label := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(18)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	row := func(k, v string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, label.Render(k), v)
	}

	lat := slices.Clone(res.Latencies)
	slices.Sort(lat)
	pct := func(p float64) time.Duration {
		if len(lat) == 0 {
			return 0
		}
		i := int(float64(len(lat)) * p)
		if i >= len(lat) {
			i = len(lat) - 1
		}
		return lat[i]
	}

	tps := 0.0
	if res.Elapsed > 0 {
		tps = float64(res.Committed) / res.Elapsed.Seconds()
	}

	rows := []string{
		title.Render("storecore bench " + res.RunID.String()[:8]),
		row("Workers", fmt.Sprintf("%d x %d txns", opts.Workers, opts.Txns)),
		row("Elapsed", formatDuration(res.Elapsed)),
		row("Committed", fmt.Sprintf("%d (%.0f txn/s)", res.Committed, tps)),
		row("Failed", fmt.Sprintf("%d", res.Failed)),
		row("Aborted attempts", fmt.Sprintf("%d", res.Aborts)),
		row("Latency p50/p95", fmt.Sprintf("%s / %s", formatDuration(pct(0.5)), formatDuration(pct(0.95)))),
		row("Latency p99", formatDuration(pct(0.99))),
		row("Records", fmt.Sprintf("+%d -%d (scanned %d)", res.Inserted, res.Deleted, res.Scanned)),
		row("Pool", fmt.Sprintf("%d/%d resident, %d dirty", res.Pool.Resident, res.Pool.Capacity, res.Pool.Dirty)),
		row("Hit ratio", fmt.Sprintf("%.1f%% (%d evictions)", res.Pool.HitRatio()*100, res.Pool.Evictions)),
		row("Flushes", fmt.Sprintf("%d", res.Pool.Flushes)),
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// formatDuration picks the largest unit that keeps two decimals readable.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
