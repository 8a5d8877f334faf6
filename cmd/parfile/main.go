package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/airbusgeo/force-prep/parameter"
	"github.com/airbusgeo/force-prep/service/log"
	"go.uber.org/zap"
)

type config struct {
	ParamDir     string
	Target       string
	ForceBinary  string
	Values       map[string]string
	OptionsFiles []string
}

func newAppConfig() (*config, error) {
	config := config{Values: map[string]string{}}
	flag.StringVar(&config.ParamDir, "param-dir", "", "directory where force-parameter writes the LEVEL2 skeleton")
	flag.StringVar(&config.Target, "target", "", "path of the parameter file to create (nothing is done if it already exists)")
	flag.StringVar(&config.ForceBinary, "force-parameter", "force-parameter", "path of the force-parameter binary")
	flag.Func("options", "YAML file of LEVEL2 options NAME: VALUE (repeatable, applied before -set)", func(s string) error {
		config.OptionsFiles = append(config.OptionsFiles, s)
		return nil
	})
	var sets [][2]string
	flag.Func("set", "LEVEL2 option NAME=VALUE (repeatable), e.g. -set NPROC=64", func(s string) error {
		name, value, err := parameter.ParseAssignment(s)
		if err != nil {
			return err
		}
		sets = append(sets, [2]string{name, value})
		return nil
	})
	printDefaults := flag.Bool("defaults", false, "print the known options and their default value, then exit")
	flag.Parse()

	if *printDefaults {
		for _, o := range parameter.Options {
			fmt.Printf("%s = %s\n", o.Name, o.Default)
		}
		os.Exit(0)
	}

	for _, f := range config.OptionsFiles {
		values, err := parameter.LoadValuesFile(f)
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			config.Values[k] = v
		}
	}
	for _, kv := range sets {
		config.Values[kv[0]] = kv[1]
	}

	if config.ParamDir == "" {
		return nil, fmt.Errorf("missing param-dir config flag")
	}
	if config.Target == "" {
		return nil, fmt.Errorf("missing target config flag")
	}
	return &config, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	cancel()
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}
	ctx = log.With(ctx, "target", config.Target)
	return parameter.EnsureFile(ctx, parameter.ForceGenerator{Binary: config.ForceBinary}, config.ParamDir, config.Target, config.Values)
}
