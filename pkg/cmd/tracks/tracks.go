package tracks

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/racelink/pkg/config"
	"github.com/mpapenbr/racelink/pkg/model"
	"github.com/mpapenbr/racelink/pkg/track"
)

var fetchPaths bool

func NewTracksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "lists the track catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := track.LoadCatalog(config.TrackFile)
			if err != nil {
				return err
			}
			return writeList(os.Stdout, catalog.Tracks())
		},
	}
	cmd.PersistentFlags().StringVar(&config.TrackFile,
		"track-file",
		"",
		"yaml track catalog (default: builtin tracks)")
	cmd.AddCommand(newShowCmd())
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show TRACK",
		Short: "resolves a track and prints its start, grid and barriers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showTrack(cmd.Context(), os.Stdout, args[0])
		},
	}
	cmd.Flags().BoolVar(&fetchPaths,
		"fetch",
		false,
		"fetch path documents referenced by pathUrl")
	return cmd
}

func writeList(w io.Writer, tracks []model.TrackData) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLAPS\tSOURCE")
	for _, t := range tracks {
		source := "path"
		if t.PathURL != "" {
			source = t.PathURL
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.ID, t.Name, t.Laps, source)
	}
	return tw.Flush()
}

func showTrack(ctx context.Context, w io.Writer, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	catalog, err := track.LoadCatalog(config.TrackFile)
	if err != nil {
		return err
	}
	opts := []track.ResolverOption{}
	if fetchPaths {
		fetcher, err := track.NewHTTPFetcher()
		if err != nil {
			return err
		}
		opts = append(opts, track.WithFetcher(fetcher))
	}
	resolved, err := track.NewResolver(catalog, opts...).Get(ctx, id)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(summarize(resolved))
}

type summary struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	Override bool         `yaml:"override"`
	Length   float64      `yaml:"length"`
	Width    float64      `yaml:"width"`
	Scale    float64      `yaml:"scale"`
	Start    model.Pose   `yaml:"start"`
	Grid     []model.Pose `yaml:"grid"`
	Barriers int          `yaml:"barriers"`
}

func summarize(r *track.Resolved) summary {
	return summary{
		ID:       r.Data.ID,
		Name:     r.Data.Name,
		Override: r.Geometry.FromOverride,
		Length:   r.Geometry.World.Length(),
		Width:    r.Geometry.Width,
		Scale:    r.Geometry.Scale,
		Start:    r.Geometry.Start,
		Grid:     r.Grid,
		Barriers: len(r.Barriers),
	}
}
