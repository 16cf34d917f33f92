package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"bdresolve/internal/batch"
	"bdresolve/internal/resolve"
	"bdresolve/internal/store"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		workers       int
		sequential    bool
		strict        bool
		skipProcessed bool
		force         bool
		maxRetries    int
		resumeID      string
		strategy      string
		minConfidence float64
		limit         int
		noDB          bool
	)

	cmd := &cobra.Command{
		Use:   "process [directory]",
		Short: "Resolve metadata for every comic archive in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if resumeID == "" && len(args) == 0 {
				return fmt.Errorf("a directory argument is required unless --resume is given")
			}

			applyFlag := func(name string, fn func()) {
				if cmd.Flags().Changed(name) {
					fn()
				}
			}
			applyFlag("workers", func() { cfg.Batch.Workers = workers })
			applyFlag("sequential", func() { cfg.Batch.BatchMode = !sequential })
			applyFlag("strict", func() { cfg.Batch.StrictMode = strict })
			applyFlag("skip-processed", func() { cfg.Batch.SkipProcessed = skipProcessed })
			applyFlag("max-retries", func() { cfg.Batch.MaxRetries = maxRetries })
			applyFlag("strategy", func() { cfg.Merge.Strategy = strategy })
			applyFlag("min-confidence", func() { cfg.Search.MinConfidence = minConfidence })
			applyFlag("limit", func() { cfg.Search.Limit = limit })
			if force {
				cfg.Batch.SkipProcessed = false
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var st *store.Store
			if !noDB {
				lock, err := ctx.acquireLock()
				if err != nil {
					return err
				}
				defer func() { _ = lock.Unlock() }()

				st, err = ctx.openStore(resumeID != "")
				if err != nil {
					return err
				}
				if st != nil {
					defer st.Close()
				}
			}

			resolver, err := ctx.buildResolver(st, resolve.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}
			orchestrator := batch.New(logger, cfg, st, resolver)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var summary *batch.RunSummary
			if resumeID != "" {
				summary, err = orchestrator.Resume(runCtx, resumeID)
			} else {
				summary, err = orchestrator.Run(runCtx, args[0])
			}
			if err != nil {
				return err
			}

			printSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker pool size (1-8)")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Process files one at a time")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail low-confidence files instead of queueing them for review")
	cmd.Flags().BoolVar(&skipProcessed, "skip-processed", true, "Skip files already resolved in earlier sessions")
	cmd.Flags().BoolVar(&force, "force", false, "Re-process files even when already resolved")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Attempts per file before giving up")
	cmd.Flags().StringVar(&resumeID, "resume", "", "Resume a paused or failed session by id")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Merge strategy: best_confidence, priority, or consensus")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Minimum source confidence (0-100)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum candidates kept per file")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "Run without the database (outcomes are not persisted)")

	return cmd
}

func printSummary(cmd *cobra.Command, summary *batch.RunSummary) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, renderTable(
		[]column{
			{name: "Total", numeric: true},
			{name: "Processed", numeric: true},
			{name: "Success", numeric: true},
			{name: "Manual", numeric: true},
			{name: "Failed", numeric: true},
			{name: "Skipped", numeric: true},
		},
		[][]string{{
			strconv.Itoa(summary.TotalFiles),
			strconv.Itoa(summary.Processed),
			strconv.Itoa(summary.Successful),
			strconv.Itoa(summary.Manual),
			strconv.Itoa(summary.Failed),
			strconv.Itoa(summary.Skipped),
		}},
	))
	if summary.Interrupted {
		fmt.Fprintf(out, "run interrupted; resume with: bdresolve process --resume %s\n", summary.SessionID)
	}

	if len(summary.LowConfidence) > 0 {
		rows := make([][]string, 0, len(summary.LowConfidence))
		for _, entry := range summary.LowConfidence {
			rows = append(rows, []string{entry.FilePath, fmt.Sprintf("%.3f", entry.Score), entry.Title})
		}
		fmt.Fprintln(out, "needs review:")
		fmt.Fprintln(out, renderTable(
			[]column{{name: "File"}, {name: "Score", numeric: true}, {name: "Best match"}},
			rows,
		))
	}
}
