package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/ironsheep/leafscan/internal/config"
	"github.com/ironsheep/leafscan/internal/imaging"
	"github.com/ironsheep/leafscan/internal/pipeline"
	"github.com/ironsheep/leafscan/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("leafscan - plant leaf disease screening")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  leafscan predict [--config path] [--model path] <image|dir>...")
	fmt.Println("  leafscan train   [--config path] [--model path] <dataset-dir>")
	fmt.Println("  leafscan serve   [--config path] [--model path]")
	fmt.Println("  leafscan config init <path>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("A dataset directory must contain healthy/ and diseased/ subdirectories.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=path          Configuration file\n", config.EnvConfigPath)
	fmt.Printf("  %s=debug      Enable debug logging\n", config.EnvLogLevel)
	fmt.Println()
	fmt.Println("serve communicates via MCP protocol over stdin/stdout.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Configure logging to stderr (stdout carries results and MCP traffic)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	var err error
	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("leafscan %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		usage()
		return
	case "predict":
		err = runPredict(os.Args[2:])
	case "train":
		err = runTrain(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every pipeline subcommand.
type commonFlags struct {
	configPath string
	modelPath  string
}

func parseFlags(name string, args []string) (*commonFlags, []string, error) {
	var cf commonFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cf.configPath, "config", "", "Path to YAML configuration")
	fs.StringVar(&cf.modelPath, "model", "", "Path to model artifact (overrides config)")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &cf, fs.Args(), nil
}

// loadConfig resolves configuration from file, environment and flags.
func (cf *commonFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.FromEnv(cf.configPath)
	if err != nil {
		return nil, err
	}
	if cf.modelPath != "" {
		cfg.Model.Path = cf.modelPath
	}
	if cfg.Debug() {
		log.Printf("leafscan %s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("config: %+v", *cfg)
	}
	return cfg, nil
}

func runPredict(args []string) error {
	cf, rest, err := parseFlags("predict", args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errors.New("predict needs at least one image")
	}
	cfg, err := cf.loadConfig()
	if err != nil {
		return err
	}

	paths, err := expandImages(rest)
	if err != nil {
		return err
	}

	analyzer := pipeline.New(nil, cfg)
	if _, err := analyzer.LoadModel(""); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := analyzer.AnalyzeBatch(ctx, paths)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if len(results) > 1 {
			fmt.Printf("%s:\n", r.Path)
		}
		if r.Err != nil {
			fmt.Printf("Error: %v\n", r.Err)
			failed++
			continue
		}
		fmt.Printf("Prediction: %s\n", r.Report.Prediction)
		fmt.Printf("Spots detected: %d\n", r.Report.SpotCount)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
	return nil
}

// expandImages replaces directory arguments with the image files they
// contain, sorted by name.
func expandImages(args []string) ([]string, error) {
	var paths []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil || !info.IsDir() {
			paths = append(paths, a)
			continue
		}
		entries, err := os.ReadDir(a)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && imaging.IsImageFile(e.Name()) {
				found = append(found, filepath.Join(a, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, errors.New("no images found")
	}
	return paths, nil
}

func runTrain(args []string) error {
	cf, rest, err := parseFlags("train", args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("train needs exactly one dataset directory")
	}
	cfg, err := cf.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	analyzer := pipeline.New(nil, cfg)
	res, err := analyzer.Train(ctx, rest[0], "")
	if err != nil {
		return err
	}

	fmt.Printf("Test accuracy: %.4f\n", res.Accuracy)
	fmt.Printf("Skipped files: %d\n", res.Skipped)
	fmt.Printf("Model saved to %s\n", cfg.Model.Path)
	return nil
}

func runServe(args []string) error {
	cf, _, err := parseFlags("serve", args)
	if err != nil {
		return err
	}
	cfg, err := cf.loadConfig()
	if err != nil {
		return err
	}

	analyzer := pipeline.New(nil, cfg)
	if _, err := analyzer.LoadModel(""); err != nil {
		// leaf_load_model and leaf_train can still install one
		log.Printf("starting without a model: %v", err)
	}

	server.Version = Version
	return server.New(analyzer).Run()
}

func runConfig(args []string) error {
	if len(args) != 2 || args[0] != "init" {
		return errors.New("usage: leafscan config init <path>")
	}
	if _, err := os.Stat(args[1]); err == nil {
		return fmt.Errorf("%s already exists", args[1])
	}
	if err := config.Save(config.DefaultConfig(), args[1]); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", args[1])
	return nil
}
