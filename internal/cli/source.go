package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ghostcanvas/pkg/astwriter"
	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/imports"
	"github.com/matzehuels/ghostcanvas/pkg/source"
)

// fileFlags are shared by the commands that transform one source file.
type fileFlags struct {
	root   string
	write  bool
	output string
}

func (f *fileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.root, "root", "", "project root the file's path is taken relative to (default: the file's directory)")
	cmd.Flags().BoolVarP(&f.write, "write", "w", false, "write the result back to the file")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the result to this file instead of stdout")
}

// read loads file and returns its text and project path.
func (f *fileFlags) read(file string) (text, path string, err error) {
	b, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", file)
		}
		return "", "", err
	}
	path, err = projectPath(file, f.root)
	if err != nil {
		return "", "", err
	}
	return string(b), path, nil
}

// emit writes text back to file (-w), to -o, or to out.
func (f *fileFlags) emit(out io.Writer, file, text string) error {
	switch {
	case f.write:
		return writeFile(file, text)
	case f.output != "":
		return writeFile(f.output, text)
	}
	_, err := io.WriteString(out, text)
	return err
}

func (f *fileFlags) target(file string) string {
	if f.output != "" {
		return f.output
	}
	return file
}

func (f *fileFlags) toFile() bool { return f.write || f.output != "" }

func writeFile(path, text string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, []byte(text), mode)
}

// locationFlag parses --at "line:col" against the file's project path.
func locationFlag(path, at string) (source.Location, error) {
	if at == "" {
		return source.Location{}, errors.New(errors.ErrCodeInvalidInput, "--at is required (line:col)")
	}
	return source.ParseLocation(path + ":" + at)
}

// =============================================================================
// instrument
// =============================================================================

func (c *CLI) instrumentCommand() *cobra.Command {
	var (
		ff      fileFlags
		attr    string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "instrument <file>",
		Short: "Stamp every markup element with its source location",
		Long: `Instrument stamps every JSX/TSX/HTML element in a file with a
data-gc-source="file:line:col" attribute, the way preview frames receive
the project's files. Locations refer to the uninstrumented text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if attr != "" {
				cfg.Instrument.Attribute = attr
			}
			ch, err := c.newCache(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer ch.Close()

			text, path, err := ff.read(args[0])
			if err != nil {
				return err
			}
			prog := newProgress(logger)
			res, err := c.newInstrumenter(cfg, ch).Instrument(ctx, path, text)
			if err != nil {
				return err
			}
			if !res.Instrumented {
				logger.Warn("file has no markup mode, passed through", "path", path)
			}
			if err := ff.emit(cmd.OutOrStdout(), args[0], res.Text); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Instrumented %d elements", res.Elements))
			if res.Cached {
				logger.Debug("served from cache", "path", path)
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&attr, "attr", "", "stamp attribute name (default from config, data-gc-source)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the instrumentation cache")
	return cmd
}

// =============================================================================
// imports
// =============================================================================

func (c *CLI) importsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imports",
		Short: "Inspect and edit a file's import block",
	}
	cmd.AddCommand(c.importsAddCommand())
	cmd.AddCommand(c.importsListCommand())
	return cmd
}

func (c *CLI) importsAddCommand() *cobra.Command {
	var (
		ff         fileFlags
		name, from string
		isDefault  bool
	)
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add an import unless the name is already bound",
		Example: `  ghostcanvas imports add src/App.tsx --name Card --from /components/Card.tsx -w
  ghostcanvas imports add src/App.tsx --name Logo --from ./Logo --default`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateComponentName(name); err != nil {
				return err
			}
			if err := errors.ValidateImportPath(from); err != nil {
				return err
			}
			text, path, err := ff.read(args[0])
			if err != nil {
				return err
			}
			res, err := imports.Merge(text, path, []imports.Requirement{{Name: name, Path: from, Default: isDefault}})
			if err != nil {
				return err
			}
			if err := ff.emit(cmd.OutOrStdout(), args[0], res.Text); err != nil {
				return err
			}
			if !ff.toFile() {
				return nil
			}
			if len(res.Added) == 0 {
				printInfo("%s is already imported", StyleHighlight.Render(name))
				return nil
			}
			printSuccess("Imported %s", StyleHighlight.Render(name))
			printFile(ff.target(args[0]))
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "binding to import (required)")
	cmd.Flags().StringVar(&from, "from", "", "module path; project-rooted paths are made relative (required)")
	cmd.Flags().BoolVar(&isDefault, "default", false, "import as the module's default export")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func (c *CLI) importsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "List the bindings a file imports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			block, err := imports.Parse(string(b))
			if err != nil {
				return errors.Wrap(errors.ErrCodeParseFailure, err, "parse imports of %s", args[0])
			}
			out := cmd.OutOrStdout()
			for _, st := range block.Statements {
				fmt.Fprintf(out, "%-24s %s\n", st.Path, strings.Join(st.Locals(), ", "))
			}
			return nil
		},
	}
}

// =============================================================================
// insert
// =============================================================================

func (c *CLI) insertCommand() *cobra.Command {
	var (
		ff     fileFlags
		at     string
		markup string
		first  bool
	)
	cmd := &cobra.Command{
		Use:   "insert <file>",
		Short: "Insert markup as a child of the element at a location",
		Example: `  ghostcanvas insert src/App.tsx --at 6:7 --markup '<Card title="Hi" />' -w
  echo '<p>hello</p>' | ghostcanvas insert index.html --at 3:5 --markup - --first`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, path, err := ff.read(args[0])
			if err != nil {
				return err
			}
			loc, err := locationFlag(path, at)
			if err != nil {
				return err
			}
			if markup == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				markup = string(b)
			}
			pos := astwriter.Last
			if first {
				pos = astwriter.First
			}
			res, err := astwriter.InsertChildAtLocation(path, text, loc, markup, pos)
			if err != nil {
				return err
			}
			if err := ff.emit(cmd.OutOrStdout(), args[0], res.Text); err != nil {
				return err
			}
			if ff.toFile() {
				printSuccess("Inserted at %s", StyleHighlight.Render(res.Child.String()))
				printFile(ff.target(args[0]))
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "opening tag of the parent element, line:col (required)")
	cmd.Flags().StringVar(&markup, "markup", "", "markup to insert, or - to read stdin (required)")
	cmd.Flags().BoolVar(&first, "first", false, "insert as the first child instead of the last")
	_ = cmd.MarkFlagRequired("at")
	_ = cmd.MarkFlagRequired("markup")
	return cmd
}

// =============================================================================
// swap
// =============================================================================

func (c *CLI) swapCommand() *cobra.Command {
	var (
		ff     fileFlags
		at     string
		dir    string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "swap <file>",
		Short: "Swap the element at a location with its previous or next sibling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := astwriter.ParseDirection(dir)
			if err != nil {
				return err
			}
			text, path, err := ff.read(args[0])
			if err != nil {
				return err
			}
			loc, err := locationFlag(path, at)
			if err != nil {
				return err
			}

			if err := astwriter.PreflightSwapSibling(path, text, loc, d); err != nil {
				if errors.IsInformational(err) {
					printInfo("%s", errors.UserMessage(err))
					return nil
				}
				return err
			}
			if dryRun {
				printSuccess("%s can move %s", loc, d)
				return nil
			}

			out, moved, err := astwriter.SwapSiblingAtLocation(path, text, loc, d)
			if err != nil {
				return err
			}
			if err := ff.emit(cmd.OutOrStdout(), args[0], out); err != nil {
				return err
			}
			if ff.toFile() {
				printSuccess("Moved %s to %s", d, StyleHighlight.Render(moved.String()))
				printFile(ff.target(args[0]))
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "opening tag of the element to move, line:col (required)")
	cmd.Flags().StringVar(&dir, "dir", "next", "direction: prev or next")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only check whether the swap is possible")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}
