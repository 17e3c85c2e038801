// Package main hosts the tidyfin CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, applies flag overrides, and
// wires the parser, catalog matcher, organizer engine, run journal, and
// metrics together for each invocation. preview never touches the
// filesystem; organize plans and then executes; history reads the journal.
//
// Keep this package lean: behavior belongs in internal packages and is only
// surfaced here through commands and flags.
package main
