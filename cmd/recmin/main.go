// recmin 生成推荐数据最小化实验所需的数据集变体与实验配置。
//
// 用法：
//
//	recmin prepare -config run.yaml
//	recmin sweep -config run.yaml -phase train|recs|metrics [-reset]
//	recmin strategies
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rushteam/recmin/config"
	_ "github.com/rushteam/recmin/config/builders"
	"github.com/rushteam/recmin/driver"
	"github.com/rushteam/recmin/experiment"
	"github.com/rushteam/recmin/logging"
	"github.com/rushteam/recmin/minimize"
)

// Version information (set via ldflags)
var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "prepare":
		err = prepare(ctx, os.Args[2:])
	case "sweep":
		err = sweep(ctx, os.Args[2:])
	case "strategies":
		for _, k := range minimize.SupportedKinds() {
			fmt.Println(k)
		}
	case "version":
		fmt.Printf("recmin %s (%s)\n", Version, Commit)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		logging.Err(err).Str("command", os.Args[1]).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: recmin <command> [flags]

Commands:
  prepare     preprocess datasets and write minimized variants
  sweep       render experiment configs and run the external framework
  strategies  list supported minimization strategies
  version     print version`)
}

func load(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", "", "Path to YAML run config (env RECMIN_* overrides)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Caller:    cfg.Log.Caller,
		Timestamp: true,
	})
	logging.Info().Str("version", Version).Str("config", *path).Msg("configuration loaded")
	return cfg, nil
}

func prepare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ExitOnError)
	cfg, err := load(fs, args)
	if err != nil {
		return err
	}
	summaries, err := driver.Run(ctx, cfg)
	for _, s := range summaries {
		logging.Info().
			Str("dataset", s.Dataset).
			Int("raw", s.Raw).
			Int("prepared", s.Prepared).
			Int("candidate", s.Candidate).
			Int("variants", s.Variants).
			Msg("dataset summary")
	}
	return err
}

func sweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	phase := fs.String("phase", "train", "Experiment phase: train, recs or metrics")
	reset := fs.Bool("reset", false, "Delete the phase's checkpoints before running")
	cfg, err := load(fs, args)
	if err != nil {
		return err
	}
	if *reset {
		cfg.Experiment.Reset = true
	}
	p, err := experiment.ParsePhase(*phase)
	if err != nil {
		return err
	}
	report, err := driver.New(cfg).Sweep(ctx, p)
	if err != nil {
		return err
	}
	logging.Info().
		Str("phase", *phase).
		Int("rendered", report.Rendered).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("checkpointed", report.Checkpointed).
		Int("cleared", report.Cleared).
		Msg("sweep summary")
	return nil
}
