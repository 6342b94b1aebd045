package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ghostcanvas/pkg/cache"
	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/render/scenedot"
	"github.com/matzehuels/ghostcanvas/pkg/scene"
	"github.com/matzehuels/ghostcanvas/pkg/synth"
)

// readSnapshot loads and validates a scene snapshot JSON file, as served
// by GET /api/scene.
func readSnapshot(path string) (*scene.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, err
	}
	var snap scene.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode scene %s", path)
	}
	if snap.Nodes == nil {
		snap.Nodes = map[string]*scene.Node{}
	}
	if err := snap.Check(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// =============================================================================
// synth
// =============================================================================

func (c *CLI) synthCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "synth <scene.json> <nodeID>",
		Short: "Print the markup a scene node would be written as",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			code, err := synth.Synthesize(snap, args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(code)
			}
			for _, req := range code.Imports {
				if req.Default {
					fmt.Fprintf(out, "import %s from %q;\n", req.Name, req.Path)
				} else {
					fmt.Fprintf(out, "import { %s } from %q;\n", req.Name, req.Path)
				}
			}
			if len(code.Imports) > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, code.Markup)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print markup and imports as JSON")
	return cmd
}

// =============================================================================
// scene
// =============================================================================

func (c *CLI) sceneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Inspect scene snapshots",
	}
	cmd.AddCommand(c.sceneCheckCommand())
	cmd.AddCommand(c.sceneDotCommand())
	cmd.AddCommand(c.sceneRenderCommand())
	cmd.AddCommand(c.sceneViewCommand())
	return cmd
}

func (c *CLI) sceneCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <scene.json>",
		Short: "Validate a snapshot's structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			printSuccess("Scene is consistent")
			printSceneStats(snap)
			printNextStep("Render it", "ghostcanvas scene render "+args[0])
			return nil
		},
	}
}

func (c *CLI) sceneDotCommand() *cobra.Command {
	var detailed bool
	cmd := &cobra.Command{
		Use:   "dot <scene.json>",
		Short: "Print a snapshot as a Graphviz DOT graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), scenedot.ToDOT(snap, scenedot.Options{Detailed: detailed}))
			return err
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include ids, geometry, layout and props")
	return cmd
}

func (c *CLI) sceneRenderCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
		scale    float64
		noCache  bool
	)
	cmd := &cobra.Command{
		Use:   "render <scene.json>",
		Short: "Render a snapshot to SVG, PDF or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + format
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ch, err := c.newCache(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer ch.Close()

			key := cache.NewDefaultKeyer().ArtifactKey(snap.Hash(), cache.ArtifactKeyOpts{Format: format, Detailed: detailed})
			if format == "png" {
				key += fmt.Sprintf("@%g", scale)
			}
			data, hit, err := ch.Get(ctx, key)
			if err != nil || !hit {
				spinner := newSpinnerWithContext(ctx, "Rendering "+format+"...")
				spinner.Start()
				data, err = renderScene(snap, format, detailed, scale)
				if err != nil {
					spinner.StopWithError("Render failed")
					return err
				}
				spinner.Stop()
				if err := ch.Set(ctx, key, data, cache.TTLArtifact); err != nil {
					c.Logger.Warn("artifact cache write failed", "err", err)
				}
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Rendered %s", format)
			printFile(output)
			printSceneStats(snap)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: svg, pdf or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: the snapshot name with the format's extension)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include ids, geometry, layout and props")
	cmd.Flags().Float64Var(&scale, "scale", 2, "PNG scale factor")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")
	return cmd
}

func renderScene(snap *scene.Snapshot, format string, detailed bool, scale float64) ([]byte, error) {
	dot := scenedot.ToDOT(snap, scenedot.Options{Detailed: detailed})
	switch format {
	case "svg":
		return scenedot.RenderSVG(dot)
	case "pdf":
		return scenedot.RenderPDF(dot)
	case "png":
		return scenedot.RenderPNG(dot, scale)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unknown format %q (want svg, pdf or png)", format)
}

func (c *CLI) sceneViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view <scene.json>",
		Short: "Browse a snapshot's node tree interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			final, err := tea.NewProgram(NewSceneTreeModel(snap), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			m, ok := final.(SceneTreeModel)
			if !ok || m.Chosen == "" {
				return nil
			}
			code, err := synth.Synthesize(snap, m.Chosen)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code.Markup)
			return nil
		},
	}
}
