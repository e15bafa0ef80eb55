package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/ecomap/internal/core/config"
	"github.com/mohammed-shakir/ecomap/internal/invalidation"
	"github.com/mohammed-shakir/ecomap/internal/invalidation/kafkapublisher"
)

// invalidateCmd publishes a dataset-changed event by hand, for edits made
// outside the admin tools.
func invalidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate <layer>",
		Short: "Publish a dataset-changed event for a layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			op, _ := cmd.Flags().GetString("op")
			recordID, _ := cmd.Flags().GetString("record-id")

			ev := invalidation.Event{
				Version: 1,
				Op:      op,
				Layer:   args[0],
				TS:      time.Now().UTC(),
				Source:  "ecomap-cli",
			}
			if recordID != "" {
				ev.RecordID = recordID
			}
			if err := ev.Validate(); err != nil {
				return err
			}

			pub, err := kafkapublisher.New(cfg.Invalidation.BrokerList(), cfg.Invalidation.Topic)
			if err != nil {
				return err
			}
			defer func() { _ = pub.Close() }()

			part, off, err := pub.Publish(ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s %s to %s (partition %d, offset %d)\n",
				ev.Op, ev.Layer, cfg.Invalidation.Topic, part, off)
			return nil
		},
	}
	cmd.Flags().String("op", invalidation.OpUpdate, "change kind: insert|update|delete")
	cmd.Flags().String("record-id", "", "id of the changed record")
	return cmd
}
