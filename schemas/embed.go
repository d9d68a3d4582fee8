// Package schemas embeds the JSON Schema documents shipped with the module.
package schemas

import "embed"

// Schema file names
const (
	Analysis        = "analysis.schema.json"
	SimulationInput = "simulation_input.schema.json"
)

// FS holds every *.schema.json file in this directory
//
//go:embed *.schema.json
var FS embed.FS
