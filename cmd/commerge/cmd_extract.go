package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/commerge/internal/store"
)

func newExtractCmd() *cobra.Command {
	var (
		in  inputFlags
		k   int
		out string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Write one community as a standalone METIS graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.required(); err != nil {
				return err
			}
			_, cs, err := in.load()
			if err != nil {
				return err
			}
			if k < 0 || k >= len(cs) {
				return fmt.Errorf("--k %d out of range, file holds %d communities", k, len(cs))
			}
			w, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := store.WriteMetis(w, cs[k]); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	in.register(cmd, string(store.FormatNodeList))
	cmd.Flags().IntVar(&k, "k", 0, "0-based index of the community to extract")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout, .sz for snappy)")
	return cmd
}
