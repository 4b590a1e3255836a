package scene

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/achilleasa/gpurt/types"
)

// Stats renders a table summarizing the scene contents.
func (sc *Scene) Stats() string {
	var emissive, metal, dielectric int
	for _, s := range sc.Spheres {
		switch {
		case s.IsEmissive():
			emissive++
		case s.Albedo == (types.Vec3{}):
			metal++
		default:
			dielectric++
		}
	}

	var triangles int
	for _, m := range sc.Meshes {
		triangles += len(m.Mesh.Indices) / 3
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Entity", "Kind", "Count"})
	table.Append([]string{"Spheres", "---", fmt.Sprint(len(sc.Spheres))})
	table.Append([]string{"", "Emissive", fmt.Sprint(emissive)})
	table.Append([]string{"", "Metal", fmt.Sprint(metal)})
	table.Append([]string{"", "Dielectric", fmt.Sprint(dielectric)})
	table.Append([]string{"", "Rejected", fmt.Sprint(sc.RejectedSpheres)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Meshes", "---", fmt.Sprint(len(sc.Meshes))})
	table.Append([]string{"", "Triangles", fmt.Sprint(triangles)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Primitives", "---", fmt.Sprint(len(sc.Primitives))})
	for _, p := range sc.Primitives {
		table.Append([]string{"", fmt.Sprintf("#%d %s", p.MeshID, p.Shape), fmt.Sprintf("%v", p.Size)})
	}
	table.Render()
	return buf.String()
}
