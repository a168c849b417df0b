// Package harness runs compile scenarios: a graph document, a localhost
// deployment and a list of assertions about the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario checks"
//	graph: ../graphs/pipeline.yaml   # relative to the scenario file
//	deployment:
//	  base_port: 7000
//	  members: 2
//	assertions:
//	  - type: valid
//	  - type: program_contains
//	    location: process(0)
//	    text: "dest_sink(connect_tcp"
//	  - type: statement_count
//	    location: cluster(1)
//	    count: 3
//
// # Assertion Types
//
//   - valid: the graph compiles
//   - invalid: the graph fails validation with exactly the listed codes
//   - warning: a feedback warning of the given level contains text
//   - program_contains: the program of a location contains text
//   - statement_count: the program of a location has count statements
//   - network_count: the graph has count network edges
//   - channel: a channel of the given shape was connected between sender
//     and receiver
//
// # Golden Files
//
// RunWithGolden compares the emitted programs against
// testdata/golden/<scenario name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
