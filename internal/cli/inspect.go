package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modata-dev/modata/pkg/export"
	"github.com/modata-dev/modata/pkg/schema"
)

// newInspectCmd creates the inspect command for validating diagram files.
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [diagram.modata.json]",
		Short: "Validate a diagram file and show statistics",
		Long: `Validate a diagram file and show statistics.

Checks the document against the schema (a name and well-formed entity and
relation arrays), reports dangling relation endpoints, and prints entity,
field, and relation counts along with the canvas bounding box.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), args[0])
		},
	}
}

// runInspect loads a diagram and reports its shape.
func runInspect(ctx context.Context, input string) error {
	d, err := schema.ReadFile(input)
	if err != nil {
		printError("Invalid diagram: %v", err)
		return err
	}

	fields, subEntities, enums := countFields(d)

	printSuccess("Valid diagram")
	printNewline()
	printKeyValue("Name", d.Name)
	printKeyValue("Version", d.Version)
	if d.CreatedAt != "" {
		printKeyValue("Created", d.CreatedAt)
	}
	if d.UpdatedAt != "" {
		printKeyValue("Updated", d.UpdatedAt)
	}
	printKeyValue("Entities", fmt.Sprintf("%d", len(d.Nodes)))
	printKeyValue("Relations", fmt.Sprintf("%d", len(d.Edges)))
	printKeyValue("Fields", fmt.Sprintf("%d", fields))
	if subEntities > 0 {
		printKeyValue("Sub-entities", fmt.Sprintf("%d", subEntities))
	}
	if enums > 0 {
		printKeyValue("Enums", fmt.Sprintf("%d", enums))
	}

	if len(d.Nodes) > 0 {
		g := export.ComputeGeometry(d.Nodes)
		printKeyValue("Bounds", fmt.Sprintf("%.0f x %.0f", g.Bounds.W, g.Bounds.H))
	}

	for _, dangling := range danglingEndpoints(d) {
		printWarning("relation %s references unknown entity %s", dangling.edgeID, dangling.nodeID)
	}
	return nil
}

// countFields tallies fields across all entities, including nested
// sub-entity fields, and counts structured field payloads.
func countFields(d schema.Diagram) (fields, subEntities, enums int) {
	for _, n := range d.Nodes {
		for _, f := range n.Data.Fields {
			fields++
			switch {
			case f.Type.IsSubEntity():
				subEntities++
				fields += len(f.Type.SubEntity.Fields)
			case f.Type.IsEnum():
				enums++
			}
		}
	}
	return fields, subEntities, enums
}

type danglingRef struct {
	edgeID string
	nodeID string
}

// danglingEndpoints reports relation endpoints that name no entity in the
// document.
func danglingEndpoints(d schema.Diagram) []danglingRef {
	known := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		known[n.ID] = true
	}
	var refs []danglingRef
	for _, e := range d.Edges {
		if !known[e.Source] {
			refs = append(refs, danglingRef{e.ID, e.Source})
		}
		if !known[e.Target] {
			refs = append(refs, danglingRef{e.ID, e.Target})
		}
	}
	return refs
}
