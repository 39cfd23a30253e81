// Package main hosts the epub2audio CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the workflow
// pipeline: one command per stage (import, toc, markdown, narrate, reconcile,
// assemble), convert for the whole run, and registry views (books, show,
// status). It centralizes configuration resolution, logger construction, and
// registry access so subcommands stay declarative.
//
// Add new functionality in the internal packages first, then surface it here.
package main
