package main

import (
	"fmt"
	"io"

	"github.com/burntcarrot/wavepad/docop"
	"github.com/burntcarrot/wavepad/store"
	"github.com/burntcarrot/wavepad/wavelet"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [wavelet-id]",
	Short: "Print a stored document at every version",
	Long: `Replays the delta log of a wavelet from a badger data directory, checking
its hash chain, and prints each delta with the document it produced. Without
an id, lists the stored wavelets.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

// Flags for the replay command.
var (
	replayData string
	replayOps  bool
)

func init() {
	replayCmd.Flags().StringVarP(&replayData, "data", "d", "data", "Badger data directory")
	replayCmd.Flags().BoolVar(&replayOps, "ops", false, "Also print each operation")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := store.DefaultConfig(replayData)
	cfg.GCInterval = 0
	st, err := store.OpenBadger(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		ids, err := st.Wavelets(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}
	return replay(cmd, st, args[0])
}

func replay(cmd *cobra.Command, st store.DeltaStore, id string) error {
	out := cmd.OutOrStdout()
	return wavelet.Replay(cmd.Context(), st, id, func(d wavelet.AppliedDelta, doc *docop.Document) error {
		printDelta(out, d, doc, replayOps)
		return nil
	})
}

func printDelta(out io.Writer, d wavelet.AppliedDelta, doc *docop.Document, ops bool) {
	version := color.New(color.FgYellow).SprintFunc()
	author := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(out, "%s %s %s %s\n", version(fmt.Sprintf("v%d", d.Version)), author(d.Author),
		d.Timestamp.Format("2006-01-02 15:04:05"), d.Hash[:12])
	if ops {
		fmt.Fprintf(out, "  op:  %s\n", d.Op)
	}
	fmt.Fprintf(out, "  doc: %s\n", doc.XML())
}
