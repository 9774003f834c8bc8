package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/assetbus/internal/event/events"
)

// catalogEntry is the JSON form of one catalog event.
type catalogEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Payload     string   `json:"payload"`
	Fields      []string `json:"fields"`
}

func newCatalogCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the site events and their payload fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := events.Catalog().Entries()
			out := cmd.OutOrStdout()

			if asJSON {
				list := make([]catalogEntry, 0, len(entries))
				for _, e := range entries {
					fields := e.Fields
					if fields == nil {
						fields = []string{}
					}
					list = append(list, catalogEntry{
						Name:        string(e.Name),
						Description: e.Description,
						Payload:     e.Type.Name(),
						Fields:      fields,
					})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "EVENT\tPAYLOAD\tFIELDS\n")
			for _, e := range entries {
				fields := strings.Join(e.Fields, ",")
				if fields == "" {
					fields = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Type.Name(), fields)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			c.log.Debug().Int("events", len(entries)).Msg("listed catalog")
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}
