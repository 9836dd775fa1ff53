package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aalwines/verifier/internal/aerr"
	"github.com/aalwines/verifier/internal/config"
	"github.com/aalwines/verifier/internal/jsonstream"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/netio"
	"github.com/aalwines/verifier/internal/query"
	"github.com/aalwines/verifier/internal/queryio"
	"github.com/aalwines/verifier/internal/reducer"
	"github.com/aalwines/verifier/internal/solver"
	"github.com/aalwines/verifier/internal/verifier"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// verifyFlags is the resolved flag set of one verify invocation.
type verifyFlags struct {
	verbose   bool
	input     string
	engine    int
	reduction int
	weight    string
	config    string
}

func readVerifyFlags(fs *pflag.FlagSet) (verifyFlags, error) {
	var f verifyFlags
	var err error
	if f.verbose, err = fs.GetBool("verbose"); err != nil {
		return f, flagError("verbose", err)
	}
	if f.input, err = fs.GetString("input"); err != nil {
		return f, flagError("input", err)
	}
	if f.engine, err = fs.GetInt("engine"); err != nil {
		return f, flagError("engine", err)
	}
	if f.reduction, err = fs.GetInt("reduction"); err != nil {
		return f, flagError("reduction", err)
	}
	if f.weight, err = fs.GetString("weight"); err != nil {
		return f, flagError("weight", err)
	}
	if f.config, err = fs.GetString("config"); err != nil {
		return f, flagError("config", err)
	}
	return f, nil
}

// runVerify is the root command's RunE: loads --input, compiles the
// engine/reduction/weight flags, parses every positional query (or "@file"
// query file), runs the verifier, and streams results to stdout.
func runVerify(cmd *cobra.Command, args []string) error {
	flags, err := readVerifyFlags(cmd.Flags())
	if err != nil {
		return err
	}
	verbose := flags.verbose
	inputPath := flags.input
	engineFlag := flags.engine
	reductionFlag := flags.reduction
	weightPath := flags.weight
	configPath := flags.config

	log := config.NewLogger(verbose)

	if inputPath == "" {
		return fmt.Errorf("--input is required")
	}

	// A defaults file fills in any knob the command line leaves untouched.
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("engine") {
		engineFlag = cfg.Engine
	}
	if !cmd.Flags().Changed("reduction") {
		reductionFlag = cfg.Reduction
	}
	engine, err := parseEngine(engineFlag)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		log.Warn("no queries given")
	}

	net, err := loadNetwork(inputPath)
	if err != nil {
		return err
	}

	var weight query.Weight
	if weightPath != "" {
		data, err := os.ReadFile(weightPath)
		if err != nil {
			return fmt.Errorf("reading weight file %s: %w", weightPath, err)
		}
		weight, err = query.ParseWeightJSON(data)
		if err != nil {
			return fmt.Errorf("parsing weight file %s: %w", weightPath, err)
		}
	}

	queries, labels, err := collectQueries(net, args)
	if err != nil {
		return err
	}
	for _, q := range queries {
		q.Weight = weight
	}

	opts := verifier.Options{Engine: engine, Reduction: reducer.Level(reductionFlag), Log: log}

	enc := jsonstream.New(cmd.OutOrStdout())
	defer enc.Close()

	for i, q := range queries {
		log.Debug("running query", "label", labels[i])
		res := verifier.Run(net, q, opts)
		if err := enc.Entry(labels[i], renderResult(res, q.Weight, q.Latency)); err != nil {
			return fmt.Errorf("writing result for %s: %w", labels[i], err)
		}
	}
	return nil
}

func parseEngine(v int) (solver.Engine, error) {
	switch v {
	case 1:
		return solver.PostStar, nil
	case 2:
		return solver.PreStar, nil
	default:
		return 0, fmt.Errorf("%w: --engine value %d (must be 1 or 2)", aerr.ErrSolverFailure, v)
	}
}

func loadNetwork(path string) (*netgraph.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file %s: %w", path, err)
	}
	net, err := netio.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing network file %s: %w", path, err)
	}
	return net, nil
}

// collectQueries resolves each positional argument into one or more
// queries: "@path" reads a query file (one query per line, via
// queryio.ReadQueries); anything else is parsed directly as a single query
// line. Labels are assigned "Q1", "Q2", ... in the order queries are
// encountered.
func collectQueries(net *netgraph.Network, args []string) ([]*query.Query, []string, error) {
	var queries []*query.Query
	for _, arg := range args {
		if strings.HasPrefix(arg, "@") {
			path := arg[1:]
			f, err := os.Open(path)
			if err != nil {
				return nil, nil, fmt.Errorf("opening query file %s: %w", path, err)
			}
			qs, _, err := queryio.ReadQueries(net, f)
			f.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("query file %s: %w", path, err)
			}
			queries = append(queries, qs...)
			continue
		}
		q, err := queryio.ParseLine(net, arg)
		if err != nil {
			return nil, nil, err
		}
		queries = append(queries, q)
	}
	labels := make([]string, len(queries))
	for i := range queries {
		labels[i] = fmt.Sprintf("Q%d", i+1)
	}
	return queries, labels, nil
}
