package main

import (
	"fmt"
	"io"

	"storecore/pkg/log/record"
	"storecore/pkg/log/wal"

	"github.com/spf13/cobra"
)

func newWALCommand(g *globals, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wal",
		Short: "Inspect write-ahead log files.",
	}
	cmd.AddCommand(newWALDumpCommand(g, stdout))
	cmd.AddCommand(newWALBrowseCommand(g))
	return cmd
}

func newWALDumpCommand(g *globals, stdout io.Writer) *cobra.Command {
	var path string
	var stats bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every record in a log file.",
		Long: `
Reads a write-ahead log from the start, verifying each frame, and prints one
line per record. A torn frame at the tail ends the dump.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = g.cfg.WAL.Path
			}
			return dumpWAL(stdout, path, stats)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Log file to read (default: wal.path from the config).")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print per-type record counts after the records.")
	return cmd
}

func dumpWAL(w io.Writer, path string, stats bool) error {
	reader, err := wal.NewLogReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	fmt.Fprintf(w, "log %s (%s)\n", path, reader.LogID())

	counts := make(map[record.LogRecordType]int)
	for {
		rec, err := reader.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		counts[rec.Type]++
		fmt.Fprintln(w, rec.String())
	}

	if stats {
		for _, t := range []record.LogRecordType{record.BeginRecord, record.UpdateRecord, record.CommitRecord, record.AbortRecord} {
			fmt.Fprintf(w, "%-8s %d\n", t, counts[t])
		}
	}
	return nil
}
