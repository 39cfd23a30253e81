// Package preflight provides readiness checks for the external programs and
// filesystem paths epub2audio depends on.
//
// These checks run in two contexts:
//   - The convert command calls RunAll before processing a book. If a
//     required check fails, the run stops before any stage touches the book.
//   - The status command renders RunAll, CheckSystemDeps, and ToolVersion
//     output as a health table.
package preflight
