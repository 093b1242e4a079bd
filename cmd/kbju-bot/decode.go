package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/kbju-bot/internal/adapters/barcode"
	"github.com/PabloGalante/kbju-bot/internal/domain"
)

func decodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [image]",
		Short: "Read the barcode number from an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			pool := barcode.NewPool(barcode.NewDecoder(), 1, timeout)
			code, err := pool.Decode(cmd.Context(), args[0])
			if err != nil {
				if reason, ok := domain.DecodeReasonOf(err); ok {
					return fmt.Errorf("no barcode: %s", reason)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}

	cmd.Flags().DurationP("timeout", "t", 15*time.Second, "Give up after this long")

	return cmd
}
