// wxc-tmpl compiles a directory of WXML templates into the generator
// object consumed by the companion runtime, or back into canonical WXML.
package main

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wxtool/wxc/group"
	"github.com/wxtool/wxc/parse"
	"github.com/wxtool/wxc/stringify"
)

type cmdArgs struct {
	interactive bool
	output      string
	target      string
	watch       bool
}

func main() {
	var args cmdArgs
	cmd := &cobra.Command{
		Use:           "wxc-tmpl [flags] DIRECTORY",
		Short:         "compile WXML templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, pos []string) error {
			if args.interactive {
				return cobra.MaximumNArgs(1)(cmd, pos)
			}
			return cobra.ExactArgs(1)(cmd, pos)
		},
		RunE: func(cmd *cobra.Command, pos []string) error {
			return run(args, pos)
		},
	}
	cmd.Flags().BoolVarP(&args.interactive, "interactive", "i", false,
		"read template from stdin (DIRECTORY becomes a virtual name)")
	cmd.Flags().StringVarP(&args.output, "output-single-file", "o", "",
		"output file path (defaults to stdout)")
	cmd.Flags().StringVarP(&args.target, "target", "t", "gen-object",
		"compiling target: gen-object or wxml")
	cmd.Flags().BoolVarP(&args.watch, "watch", "w", false,
		"recompile whenever a template in DIRECTORY changes")

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	if err := cmd.Execute(); err != nil {
		slog.Error("compilation failed", "err", err)
		os.Exit(1)
	}
}

func run(args cmdArgs, pos []string) error {
	if args.target != "gen-object" && args.target != "wxml" {
		return fmt.Errorf("unknown target %q (want gen-object or wxml)", args.target)
	}

	if args.interactive {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		name := ""
		if len(pos) > 0 {
			name = pos[0]
		}
		g := group.New()
		if report(g.AddTmpl(name, string(src))) {
			return fmt.Errorf("template %q has errors", name)
		}
		return emit(g, args)
	}

	dir := pos[0]
	compileOnce := func() error {
		g := group.New()
		if err := loadDir(g, dir); err != nil {
			return err
		}
		return emit(g, args)
	}
	if err := compileOnce(); err != nil && !args.watch {
		return err
	}
	if !args.watch {
		return nil
	}
	return watchDir(dir, compileOnce)
}

// loadDir walks the directory, registering every `.wxml` file under the
// slash-joined path below the root with the extension dropped.
func loadDir(g *group.TmplGroup, dir string) error {
	var bad bool
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wxml") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		src, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("read failed", "path", path, "err", err)
			return nil
		}
		slog.Debug("loaded template", "path", name, "bytes", len(src))
		if report(g.AddTmpl(name, string(src))) {
			bad = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if bad {
		return fmt.Errorf("some templates have errors")
	}
	return nil
}

// report logs the diagnostics and reports whether any prevents success.
func report(warnings []parse.Error) bool {
	failed := false
	for _, w := range warnings {
		switch {
		case w.PreventSuccess():
			failed = true
			slog.Error(w.Kind.Message(),
				"path", w.Path, "at", w.Location, "code", fmt.Sprintf("0x%x", w.Kind.Code()))
		case w.Level() >= parse.LevelWarn:
			slog.Warn(w.Kind.Message(), "path", w.Path, "at", w.Location)
		default:
			slog.Info(w.Kind.Message(), "path", w.Path, "at", w.Location)
		}
	}
	return failed
}

// emit writes the compiled output for the selected target.
func emit(g *group.TmplGroup, args cmdArgs) error {
	var out string
	switch args.target {
	case "gen-object":
		s, err := g.WxGenObjectGroups()
		if err != nil {
			return err
		}
		out = s
	case "wxml":
		var sb strings.Builder
		for _, path := range g.TmplPaths() {
			tmpl, err := g.Tree(path)
			if err != nil {
				return err
			}
			s := stringify.New(path, "", stringify.DefaultOptions())
			s.Run(tmpl)
			text, _ := s.Finish()
			sb.WriteString(text)
		}
		out = sb.String()
	}
	if args.output != "" {
		return os.WriteFile(args.output, []byte(out), 0o644)
	}
	fmt.Println(out)
	return nil
}

// watchDir recompiles on any change below dir until interrupted.
func watchDir(dir string, compile func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("watching for changes", "dir", dir)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
				}
			}
			slog.Info("change detected", "path", ev.Name)
			if err := compile(); err != nil {
				slog.Error("recompile failed", "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", err)
		}
	}
}
