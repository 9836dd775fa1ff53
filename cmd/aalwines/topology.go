package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aalwines/verifier/internal/gmlio"
	"github.com/aalwines/verifier/internal/junos"
	"github.com/aalwines/verifier/internal/netio"
	"github.com/aalwines/verifier/internal/prexio"
	"github.com/spf13/cobra"
)

// newTopologyCmd groups the topology conversion subcommands: each reads an
// external topology format and writes the equivalent network JSON.
func newTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Convert external topology formats to network JSON",
	}
	cmd.AddCommand(newTopologyConvertCmd())
	return cmd
}

func newTopologyConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert INPUT [ROUTING]",
		Short: "Convert a GML, P-Rex XML or Junos topology to network JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runTopologyConvert,
	}
	cmd.Flags().String("format", "gml", "input format: gml, prex or junos")
	cmd.Flags().String("router", "", "router name for junos input (defaults to the input filename)")
	cmd.Flags().StringP("output", "o", "", "output path (defaults to stdout)")
	return cmd
}

func runTopologyConvert(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return flagError("format", err)
	}
	routerName, err := cmd.Flags().GetString("router")
	if err != nil {
		return flagError("router", err)
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return flagError("output", err)
	}

	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer in.Close()

	var doc *netio.NetworkDoc
	switch format {
	case "gml":
		doc, err = gmlio.Parse(in)
	case "prex":
		if len(args) > 1 {
			routing, rerr := os.Open(args[1])
			if rerr != nil {
				return fmt.Errorf("opening %s: %w", args[1], rerr)
			}
			defer routing.Close()
			doc, err = prexio.Parse(in, routing)
		} else {
			doc, err = prexio.Parse(in, nil)
		}
	case "junos":
		if routerName == "" {
			base := filepath.Base(args[0])
			routerName = strings.TrimSuffix(base, filepath.Ext(base))
		}
		doc, err = junos.Parse(routerName, in)
	default:
		return fmt.Errorf("unsupported --format value %q (must be gml, prex or junos)", format)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(struct {
		Network netio.NetworkDoc `json:"network"`
	}{Network: *doc}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding network JSON: %w", err)
	}
	data = append(data, '\n')

	if outputPath == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return nil
}
