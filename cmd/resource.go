package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/mediahub"
	"github.com/emrgen/mediahub/internal/importer"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

func init() {
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(itemsCmd())
	rootCmd.AddCommand(favouriteCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(playCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(sourcesCmd())
}

func importCmd() *cobra.Command {
	var src, kind, uri string
	var skipChildren bool

	var required = []string{"source", "type", "uri"}

	command := &cobra.Command{
		Use:     "import",
		Short:   "import a resource from a source",
		Example: "hub import -s spotify -t playlist -u spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}
			client, err := newClient()
			if err != nil {
				logrus.Error(err)
				return
			}

			res, err := client.Import(cmd.Context(), mediahub.ImportRequest{Source: src, Type: kind, URI: uri, SkipChildren: skipChildren})
			if err != nil {
				logrus.Error(err)
				return
			}
			printResult(res)
		},
	}

	command.Flags().StringVarP(&src, "source", "s", "", "source: spotify, youtube or pocket (required)")
	command.Flags().StringVarP(&kind, "type", "t", "", "resource type (required)")
	command.Flags().StringVarP(&uri, "uri", "u", "", "uri or link in the source (required)")
	command.Flags().BoolVar(&skipChildren, "skip-children", false, "do not rebuild lists")
	command.Flags().SortFlags = false

	return command
}

func resolveCmd() *cobra.Command {
	var sources, kinds []string

	command := &cobra.Command{
		Use:     "resolve <text>",
		Short:   "import a pasted link or search for it",
		Example: `hub resolve "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"`,
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client, err := newClient()
			if err != nil {
				logrus.Error(err)
				return
			}

			res, err := client.Resolve(cmd.Context(), mediahub.ResolveRequest{Text: strings.Join(args, " "), Sources: sources, Types: kinds})
			if err != nil {
				logrus.Error(err)
				return
			}
			if res.Import != nil {
				color.Green("recognized %s %s on %s", res.Match.Kind, res.Match.URI, res.Match.Source)
				printResult(res.Import)
				return
			}
			color.Yellow("not recognized, search results:")
			printSearch(res.Candidates)
		},
	}

	command.Flags().StringSliceVarP(&sources, "source", "s", nil, "sources to consider")
	command.Flags().StringSliceVarP(&kinds, "type", "t", nil, "resource types to consider")

	return command
}

func searchCmd() *cobra.Command {
	var text string
	var sources, kinds []string
	var limit int

	var required = []string{"query"}

	command := &cobra.Command{
		Use:     "search",
		Short:   "search the sources",
		Example: `hub search -q "blue monday" -s spotify,youtube -t song,video`,
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}
			client, err := newClient()
			if err != nil {
				logrus.Error(err)
				return
			}

			res, err := client.Search(cmd.Context(), text, sources, kinds, limit)
			if err != nil {
				logrus.Error(err)
				return
			}
			printSearch(res)
		},
	}

	command.Flags().StringVarP(&text, "query", "q", "", "search text (required)")
	command.Flags().StringSliceVarP(&sources, "source", "s", nil, "sources to search")
	command.Flags().StringSliceVarP(&kinds, "type", "t", nil, "resource types to search")
	command.Flags().IntVarP(&limit, "limit", "l", 10, "results per source and type")
	command.Flags().SortFlags = false

	return command
}

func getCmd() *cobra.Command {
	var id string

	var required = []string{"resource-id"}

	command := &cobra.Command{
		Use:     "get",
		Short:   "show a stored resource",
		Example: "hub get -r <resource-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}
			rid, client, ok := idAndClient(id)
			if !ok {
				return
			}

			res, err := client.GetResource(cmd.Context(), rid)
			if err != nil {
				logrus.Error(err)
				return
			}
			printResource(res)
		},
	}

	command.Flags().StringVarP(&id, "resource-id", "r", "", "resource id (required)")

	return command
}

func listCmd() *cobra.Command {
	var query, kind string
	var favourite bool
	var limit int

	command := &cobra.Command{
		Use:     "list",
		Short:   "list stored resources",
		Example: "hub list -q monday -t song --favourite",
		Run: func(cmd *cobra.Command, args []string) {
			client, err := newClient()
			if err != nil {
				logrus.Error(err)
				return
			}

			found, err := client.ListResources(cmd.Context(), query, kind, favourite, limit)
			if err != nil {
				logrus.Error(err)
				return
			}
			printResources(found)
		},
	}

	command.Flags().StringVarP(&query, "query", "q", "", "text to match")
	command.Flags().StringVarP(&kind, "type", "t", "", "resource type")
	command.Flags().BoolVar(&favourite, "favourite", false, "favourites only")
	command.Flags().IntVarP(&limit, "limit", "l", 50, "maximum number of resources")
	command.Flags().SortFlags = false

	return command
}

func itemsCmd() *cobra.Command {
	var id, key string

	var required = []string{"resource-id"}

	command := &cobra.Command{
		Use:     "items",
		Short:   "list the members of a list attribute",
		Example: "hub items -r <resource-id> -k songs",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}
			rid, client, ok := idAndClient(id)
			if !ok {
				return
			}

			items, err := client.GetList(cmd.Context(), rid, key)
			if err != nil {
				logrus.Error(err)
				return
			}
			printResources(items)
		},
	}

	command.Flags().StringVarP(&id, "resource-id", "r", "", "resource id (required)")
	command.Flags().StringVarP(&key, "key", "k", "items", "list attribute")

	return command
}

func favouriteCmd() *cobra.Command {
	var id string
	var unset bool

	var required = []string{"resource-id"}

	command := &cobra.Command{
		Use:     "favourite",
		Short:   "flag a resource as favourite",
		Example: "hub favourite -r <resource-id> [--unset]",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}
			rid, client, ok := idAndClient(id)
			if !ok {
				return
			}

			res, err := client.SetFavourite(cmd.Context(), rid, !unset)
			if err != nil {
				logrus.Error(err)
				return
			}
			printResource(res)
		},
	}

	command.Flags().StringVarP(&id, "resource-id", "r", "", "resource id (required)")
	command.Flags().BoolVar(&unset, "unset", false, "remove the flag")

	return command
}

func refreshCmd() *cobra.Command {
	var id, src string

	var required = []string{"resource-id"}

	command := &cobra.Command{
		Use:     "refresh",
		Short:   "re-import a resource from its source",
		Example: "hub refresh -r <resource-id> -s spotify",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}
			rid, client, ok := idAndClient(id)
			if !ok {
				return
			}

			res, err := client.Refresh(cmd.Context(), rid, source.Type(src))
			if err != nil {
				logrus.Error(err)
				return
			}
			printResult(res)
		},
	}

	command.Flags().StringVarP(&id, "resource-id", "r", "", "resource id (required)")
	command.Flags().StringVarP(&src, "source", "s", "", "source to refresh from")

	return command
}

func playCmd() *cobra.Command {
	var req mediahub.PlayRequest

	command := &cobra.Command{
		Use:     "play",
		Short:   "start playback on a source",
		Example: "hub play -r <resource-id> --device <device-id>\nhub play -s spotify -t song -u spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		Run: func(cmd *cobra.Command, args []string) {
			if req.ResourceID == "" && req.URI == "" {
				color.Red("missing: --resource-id or --uri")
				return
			}
			client, err := newClient()
			if err != nil {
				logrus.Error(err)
				return
			}
			if err := client.Play(cmd.Context(), req); err != nil {
				logrus.Error(err)
				return
			}
			color.Green("playing")
		},
	}

	command.Flags().StringVarP(&req.ResourceID, "resource-id", "r", "", "stored resource id")
	command.Flags().StringVarP(&req.Source, "source", "s", "", "source")
	command.Flags().StringVarP(&req.Type, "type", "t", "", "resource type")
	command.Flags().StringVarP(&req.URI, "uri", "u", "", "uri in the source")
	command.Flags().StringVar(&req.Device, "device", "", "playback device")
	command.Flags().SortFlags = false

	return command
}

func deleteCmd() *cobra.Command {
	var id string

	var required = []string{"resource-id"}

	command := &cobra.Command{
		Use:     "delete",
		Short:   "delete a stored resource",
		Example: "hub delete -r <resource-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}
			rid, client, ok := idAndClient(id)
			if !ok {
				return
			}

			if err := client.DeleteResource(cmd.Context(), rid); err != nil {
				logrus.Error(err)
				return
			}
			logrus.Infof("resource %s deleted", rid)
		},
	}

	command.Flags().StringVarP(&id, "resource-id", "r", "", "resource id (required)")

	return command
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "list the sources the server can import from",
		Run: func(cmd *cobra.Command, args []string) {
			client, err := newClient()
			if err != nil {
				logrus.Error(err)
				return
			}
			sources, err := client.Sources(cmd.Context())
			if err != nil {
				logrus.Error(err)
				return
			}
			for _, s := range sources {
				fmt.Println(s)
			}
		},
	}
}

func idAndClient(id string) (uuid.UUID, *mediahub.Client, bool) {
	rid, err := uuid.Parse(id)
	if err != nil {
		logrus.Error("invalid resource id, expected a valid uuid")
		return uuid.Nil, nil, false
	}
	client, err := newClient()
	if err != nil {
		logrus.Error(err)
		return uuid.Nil, nil, false
	}
	return rid, client, true
}

func printResult(res *importer.Result) {
	if res.Created {
		color.Green("created %s", res.Resource.ID)
	} else {
		color.Green("updated %s", res.Resource.ID)
	}
	printResource(res.Resource)

	if len(res.Diagnostics) == 0 {
		return
	}
	color.Yellow("%d items could not be imported:", len(res.Diagnostics))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Type", "URI", "Key", "Error"})
	for _, d := range res.Diagnostics {
		msg := ""
		if d.Err != nil {
			msg = d.Err.Error()
		}
		table.Append([]string{string(d.Kind), d.URI, d.Key, msg})
	}
	table.Render()
}

func printResource(r *resource.Resource) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Type", "Title", "Favourite"})
	table.Append([]string{r.ID.String(), string(r.Kind), r.Title, strconv.FormatBool(r.IsFavourite)})
	table.Render()

	for _, key := range r.Keys() {
		if v, ok := r.Value(key); ok {
			printField(key, v.String())
			continue
		}
		if list, ok := r.List(key); ok {
			printField(key, fmt.Sprintf("%d items", len(list)))
		}
	}
	for _, src := range r.RemoteSources() {
		printField("remote "+src.String(), r.Remotes[src])
	}
}

func printResources(rs []*resource.Resource) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Type", "Title", "Favourite", "Updated"})
	for _, r := range rs {
		table.Append([]string{r.ID.String(), string(r.Kind), r.Title, strconv.FormatBool(r.IsFavourite), r.UpdatedAt.Format("2006-01-02 15:04")})
	}
	table.Render()
}

func printSearch(res *importer.SearchResponse) {
	if res == nil {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Source", "Type", "Title", "Subtitle", "URI"})
	for _, r := range res.Results {
		table.Append([]string{r.Source.String(), string(r.Kind), r.Title, r.Subtitle, r.URI})
	}
	table.Render()
	printDiagnostics(res.Diagnostics)
}

func printDiagnostics(diags []importer.Diagnostic) {
	for _, d := range diags {
		color.Red("%s: %v", d.Source, d.Err)
	}
}

func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		var msg string
		for _, f := range missingFlags {
			msg += fmt.Sprintf("--%s ", f)
		}

		color.Red("missing: %s\n", msg)
		if len(providedFlags) > 0 {
			color.Green("provide: %s\n", strings.Join(providedFlags, " "))
		}

		cmd.Println("")
		_ = cmd.Usage()

		return true
	}

	return false
}
