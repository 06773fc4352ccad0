// wxc-style rewrites a WXSS stylesheet: class prefixing, rpx-to-px
// conversion and @import position checks, with source-map output.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wxtool/wxc/wxss"
)

type cmdArgs struct {
	interactive     bool
	output          string
	sourcemapOutput string
	classPrefix     string
	rpxRatio        float64
}

func main() {
	var args cmdArgs
	cmd := &cobra.Command{
		Use:           "wxc-style [flags] SOURCE_FILE",
		Short:         "compile a WXSS stylesheet",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, pos []string) error {
			return run(args, pos[0])
		},
	}
	cmd.Flags().BoolVarP(&args.interactive, "interactive", "i", false,
		"read stylesheet from stdin (SOURCE_FILE is only used as file name)")
	cmd.Flags().StringVarP(&args.output, "output-single-file", "o", "",
		"output file path (defaults to stdout)")
	cmd.Flags().StringVarP(&args.sourcemapOutput, "sourcemap-output-file", "s", "",
		"sourcemap output file path")
	cmd.Flags().StringVarP(&args.classPrefix, "class-prefix", "c", "",
		"class prefix")
	cmd.Flags().Float64VarP(&args.rpxRatio, "rpx-ratio", "r", wxss.DefaultRpxRatio,
		"rpx ratio")

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	if err := cmd.Execute(); err != nil {
		slog.Error("compilation failed", "err", err)
		os.Exit(1)
	}
}

func run(args cmdArgs, sourceFile string) error {
	var src string
	if args.interactive {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		src = string(b)
	} else {
		b, err := os.ReadFile(sourceFile)
		if err != nil {
			return fmt.Errorf("reading source file: %w", err)
		}
		src = string(b)
	}

	t := wxss.FromCSS(sourceFile, src, wxss.Options{
		ClassPrefix: args.classPrefix,
		RpxRatio:    args.rpxRatio,
	})
	failed := false
	for _, w := range t.Warnings() {
		if w.PreventSuccess() {
			failed = true
			slog.Error(w.Kind.Message(), "at", w.Location, "code", fmt.Sprintf("0x%x", w.Kind.Code()))
		} else {
			slog.Info(w.Kind.Message(), "at", w.Location)
		}
	}
	if failed {
		return fmt.Errorf("stylesheet %q has errors", sourceFile)
	}

	if args.output != "" {
		f, err := os.Create(args.output)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := t.WriteContent(f); err != nil {
			return err
		}
	} else {
		fmt.Println(t.Content())
	}
	if args.sourcemapOutput != "" {
		f, err := os.Create(args.sourcemapOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		return t.WriteSourceMap(f)
	}
	return nil
}
