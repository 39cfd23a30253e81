// Package probe measures audio durations in milliseconds.
//
// Two backends implement Prober: FFprobe shells out to ffprobe and Native
// reads container headers with audiometa. All probes a list of files with a
// bounded worker pool and fails the whole batch on the first error, since a
// missing duration would shift every later chapter boundary.
package probe
