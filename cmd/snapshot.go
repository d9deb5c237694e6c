package cmd

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-embed/catalog"
	"github.com/RyanBlaney/sonido-embed/logging"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [sqlite file] [badger directory]",
	Short: "Copy a sqlite catalog into a badger directory",
	Long: `Read every track of a sqlite catalog (library_index joined with
track_embeddings) and store it as JSON under the track/ prefix of a badger
directory, which the analyze command can then read with --catalog badger.`,
	Args: cobra.ExactArgs(2),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	src, err := catalog.OpenSQLite(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	db, err := badger.Open(badger.DefaultOptions(args[1]).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("badger open: %w", err)
	}
	defer db.Close()

	n, err := catalog.Snapshot(context.Background(), src, db)
	if err != nil {
		return err
	}

	logging.Info("Snapshot written", logging.Fields{
		"source": args[0],
		"target": args[1],
		"tracks": n,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "%d tracks copied to %s\n", n, args[1])
	return nil
}
