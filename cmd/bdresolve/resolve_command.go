package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bdresolve/internal/resolve"
	"bdresolve/internal/scoring"
	"bdresolve/internal/store"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		interactive bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "resolve <file>",
		Short: "Resolve metadata for a single comic archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("limit") {
				cfg.Search.Limit = limit
			}

			st, err := ctx.openStore(false)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			resolver, err := ctx.buildResolver(st, resolve.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}

			resolution, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printResolution(cmd, resolution)
			if interactive && resolution.Decision == resolve.DecisionManual {
				chosen, err := promptSelection(cmd, resolution)
				if err != nil || chosen == nil {
					return err
				}
				if st != nil {
					rec := store.FileRecord{
						SessionID: "",
						FilePath:  resolution.FilePath,
						Status:    store.FileSuccess,
						Score:     chosen.Score,
						Title:     chosen.Candidate.Title,
						Series:    chosen.Candidate.Series,
						Volume:    chosen.Candidate.Volume,
						Year:      chosen.Candidate.Year,
						Publisher: chosen.Candidate.Publisher,
						Source:    chosen.Candidate.Source,
						AlbumURL:  chosen.Candidate.URL,
						Attempts:  1,
					}
					if _, _, err := st.RecordOutcome(cmd.Context(), rec); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt to pick a candidate when none clears the threshold")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum candidates kept")

	return cmd
}

func printResolution(cmd *cobra.Command, res *resolve.Resolution) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s: %s", res.FilePath, res.Decision)
	if res.Reason != "" {
		fmt.Fprintf(out, " (%s)", res.Reason)
	}
	fmt.Fprintln(out)

	if len(res.Candidates) == 0 {
		return
	}
	fmt.Fprintln(out, candidateTable(res.Candidates))
}

func candidateTable(candidates []scoring.ScoredCandidate) string {
	rows := make([][]string, 0, len(candidates))
	for i, sc := range candidates {
		volume := ""
		if sc.Candidate.HasVolume() {
			volume = strconv.Itoa(sc.Candidate.Volume)
		}
		year := ""
		if sc.Candidate.Year != 0 {
			year = strconv.Itoa(sc.Candidate.Year)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.3f", sc.Score),
			sc.Candidate.FullTitle(),
			volume,
			year,
			sc.Candidate.Publisher,
			sc.Candidate.Source,
		})
	}
	return renderTable(
		[]column{
			{name: "#", numeric: true},
			{name: "Score", numeric: true},
			{name: "Title"},
			{name: "Vol", numeric: true},
			{name: "Year", numeric: true},
			{name: "Publisher"},
			{name: "Source"},
		},
		rows,
	)
}

// promptSelection lets the operator accept one of the listed candidates.
// A nil candidate means the operator skipped.
func promptSelection(cmd *cobra.Command, res *resolve.Resolution) (*scoring.ScoredCandidate, error) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pick a candidate 1-%d, or press enter to skip: ", len(res.Candidates))

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, nil
	}
	line = strings.TrimSpace(line)
	if line == "" {
		fmt.Fprintln(out, "skipped")
		return nil, nil
	}

	pick, err := strconv.Atoi(line)
	if err != nil || pick < 1 || pick > len(res.Candidates) {
		return nil, fmt.Errorf("invalid selection %q", line)
	}

	chosen := res.Candidates[pick-1]
	fmt.Fprintf(out, "accepted: %s (%s)\n", chosen.Candidate.FullTitle(), chosen.Candidate.URL)
	return &chosen, nil
}
