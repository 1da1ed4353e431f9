// Command archsketch renders one architecture diagram from the command line.
//
//	archsketch -o ./out "a web app with a load balancer and two servers"
//	archsketch -o ./out -spec ./out/diagram.yaml
//
// The rendered image and the validated specification are written to the
// output directory, and their paths are printed on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"archsketch/internal/codec"
	"archsketch/internal/config"
	"archsketch/internal/core/bootstrap"
	"archsketch/internal/domain"
	"archsketch/internal/logs"
	"archsketch/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "archsketch:", err)
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			for _, v := range ve.Violations {
				fmt.Fprintf(os.Stderr, "  - %s\n", v)
			}
		}
		os.Exit(exitCode(err))
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("archsketch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outDir := fs.String("o", ".", "output directory for the image and specification")
	format := fs.String("format", "yaml", "specification output format: yaml or json")
	specPath := fs.String("spec", "", "render this specification file instead of asking the model")
	mock := fs.Bool("mock", false, "use the mock model provider")
	verbose := fs.Bool("v", false, "log pipeline progress to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, `usage: archsketch [flags] "description"`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, exporter, ok := codec.ForFormat(*format)
	if !ok {
		return fmt.Errorf("unknown format %q, want yaml or json", *format)
	}

	description := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if description == "" && *specPath == "" {
		fs.Usage()
		return errors.New("a description or -spec is required")
	}

	cfg, _, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Render.ImagesDir = *outDir
	// One-shot runs keep their output
	cfg.Render.ArtifactTTL = 0
	cfg.Pool.Size = 1
	if *mock {
		cfg.LLM.Mock = true
	}
	if *specPath == "" {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logs.New(logs.Options{Level: level, Writer: stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logs.With(ctx, logger)

	if *specPath != "" {
		// The model is never called for an imported specification
		cfg.LLM.Mock = true
	}
	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	var result *service.Result
	if *specPath != "" {
		spec, err := readSpecification(*specPath)
		if err != nil {
			return err
		}
		result, err = app.Service.RenderSpecification(ctx, spec)
		if err != nil {
			return err
		}
	} else {
		result, err = app.Service.Generate(ctx, description)
		if err != nil {
			return err
		}
	}

	specOut := strings.TrimSuffix(result.Artifact.Path, filepath.Ext(result.Artifact.Path)) + "." + exporter.Format()
	if err := writeSpecification(specOut, result.Specification, exporter); err != nil {
		return err
	}

	fmt.Fprintln(stdout, result.Artifact.Path)
	fmt.Fprintln(stdout, specOut)
	return nil
}

// readSpecification picks the importer from the file extension
func readSpecification(path string) (*domain.Specification, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	importer, _, ok := codec.ForFormat(ext)
	if !ok {
		return nil, fmt.Errorf("%s: unknown specification format %q, want .yaml or .json", path, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	spec, err := importer.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

func writeSpecification(path string, spec *domain.Specification, exporter codec.Exporter) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Export(spec, f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("export specification: %w", err)
	}
	return f.Close()
}

// exitCode separates bad input (2) from pipeline failures (1)
func exitCode(err error) int {
	switch service.ErrorKind(err) {
	case service.KindInput, service.KindValidation:
		return 2
	}
	return 1
}
