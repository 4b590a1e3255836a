package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/achilleasa/gpurt/tracer/device/gl"
)

// ShowDeviceInfo opens a hidden GL context and lists its compute limits.
func ShowDeviceInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	dev, err := gl.Open(gl.Options{Width: 1, Height: 1, Title: "gpurt", Hidden: true})
	if err != nil {
		return err
	}
	defer dev.Close()

	info := dev.Info()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Property", "Value"})
	table.AppendBulk([][]string{
		{"Vendor", info.Vendor},
		{"Renderer", info.Renderer},
		{"Version", info.Version},
		{"GLSL version", info.GLSLVersion},
		{"Max work group count", fmt.Sprintf("%d x %d x %d", info.MaxWorkGroupCount[0], info.MaxWorkGroupCount[1], info.MaxWorkGroupCount[2])},
		{"Max work group size", fmt.Sprintf("%d x %d x %d", info.MaxWorkGroupSize[0], info.MaxWorkGroupSize[1], info.MaxWorkGroupSize[2])},
		{"Max invocations", fmt.Sprintf("%d", info.MaxInvocations)},
		{"Max storage block size", fmt.Sprintf("%d", info.MaxStorageBlockSize)},
		{"Max texture size", fmt.Sprintf("%d", info.MaxTextureSize)},
	})
	table.Render()

	logger.Noticef("device information\n%s", buf.String())
	return nil
}
