// Package workflow advances registered books through the conversion stages.
//
// A Pipeline owns an ordered StageSet (import, toc, markdown, narrate,
// reconcile, assemble) and runs a contiguous slice of it for one book at a
// time. Each stage goes through stageexec.Run, which moves the book's registry
// status to the stage's processing status, calls the handler, and records the
// done status or the classified failure. The reconcile and assemble stages
// also persist the set of manifest entries that have no matching audio so the
// CLI can report them without rebuilding anything.
//
// Add new stages by extending StageSet, adding registry statuses, and
// inserting a pipelineStage in stageOrder.
package workflow
