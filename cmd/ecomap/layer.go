package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/ecomap/internal/core/config"
	"github.com/mohammed-shakir/ecomap/internal/layers"
)

func layerCmd() *cobra.Command {
	names := make([]string, 0, 5)
	for _, lt := range layers.AllLayerTypes() {
		names = append(names, string(lt))
	}

	cmd := &cobra.Command{
		Use:       "layer <" + strings.Join(names, "|") + ">",
		Short:     "Fetch one layer and print it as a styled GeoJSON FeatureCollection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			lt, err := layers.ParseLayerType(args[0])
			if err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			fc, skipped, err := fetchLayer(ctx, config.FromEnv(), lt)
			if err != nil {
				return err
			}
			for _, s := range skipped {
				fmt.Fprintln(cmd.ErrOrStderr(), "skipped", s.String())
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(fc)
		},
	}
	cmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	cmd.Flags().Bool("pretty", false, "indent the output")
	return cmd
}

// fetchLayer runs one layer through the same source, adaptor and overlay
// styling that serve uses.
func fetchLayer(ctx context.Context, cfg config.Config, lt layers.LayerType) (*geojson.FeatureCollection, []layers.Skip, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, "ecomap-layer")
	if err != nil {
		return nil, nil, err
	}
	defer a.close()

	e, ok := a.reg.ByLayer(lt)
	if !ok {
		return nil, nil, fmt.Errorf("no layer registered for %s", lt)
	}

	var raw json.RawMessage
	if a.cache != nil {
		raw, err = a.cache.FetchLayer(ctx, lt)
	} else {
		raw, err = a.client.FetchLayer(ctx, lt)
	}
	if err != nil {
		return nil, nil, err
	}
	out, err := e.Adapt(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("adapt %s: %w", lt, err)
	}

	switch e.Mode {
	case layers.Choropleth:
		a.ov.ShowChoropleth(out.Features, e.Color)
	default:
		a.ov.ShowPoints(out.Features)
	}
	fc := a.ov.Snapshot().Features
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	return fc, out.Skipped, nil
}
