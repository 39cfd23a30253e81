// Package markdown converts the HTML resource behind each manifest entry
// into Markdown narration text and records the result in the manifest's
// markdown field.
package markdown
