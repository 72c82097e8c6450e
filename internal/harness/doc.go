// Package harness runs YAML-defined engine scenarios for conformance
// testing.
//
// A scenario names one or more programs, an optional engine
// configuration, and an ordered list of runs with expected outcomes.
// The harness executes the runs against an in-memory trust store with
// fixed run IDs, so traces are deterministic and can be compared
// against golden files.
package harness
