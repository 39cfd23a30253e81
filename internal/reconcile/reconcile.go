package reconcile

import (
	"fmt"
	"path/filepath"
	"sort"

	"epub2audio/internal/audioindex"
	"epub2audio/internal/config"
	"epub2audio/internal/logging"
	"epub2audio/internal/manifest"
	"epub2audio/internal/services"
)

// Match pairs an entry with the audio file that backs it.
type Match struct {
	Entry manifest.Entry
	Path  string
	Tier  Tier
}

// Result lists resolved and unresolved entries in manifest order.
type Result struct {
	Resolved   []Match
	Unresolved []manifest.Entry
}

// Paths returns the resolved audio files in order.
func (r Result) Paths() []string {
	paths := make([]string, 0, len(r.Resolved))
	for _, match := range r.Resolved {
		paths = append(paths, match.Path)
	}
	return paths
}

// Err reports the unresolved entries as an ErrUnresolved error, or nil when
// every entry has audio.
func (r Result) Err() error {
	return UnresolvedError(len(r.Unresolved), len(r.Resolved)+len(r.Unresolved))
}

// UnresolvedError builds the ErrUnresolved error for unresolved of total
// entries. It returns nil when unresolved is zero.
func UnresolvedError(unresolved, total int) error {
	if unresolved <= 0 {
		return nil
	}
	return services.Wrap(services.ErrUnresolved, "reconcile", "resolve",
		fmt.Sprintf("%d of %d chapters have no audio", unresolved, total), nil)
}

// Reconciler resolves manifest entries to audio files.
type Reconciler struct {
	policy     string
	bookDir    string
	reporter   logging.Reporter
	strategies []Strategy
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithPolicy selects config.ConsumptionExclusive or config.ConsumptionShared.
func WithPolicy(policy string) Option {
	return func(r *Reconciler) {
		if policy != "" {
			r.policy = policy
		}
	}
}

// WithBookDir sets the directory relative stored audio paths are tried against.
func WithBookDir(dir string) Option {
	return func(r *Reconciler) {
		r.bookDir = dir
	}
}

// WithStrategies replaces the default strategy list.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Reconciler) {
		r.strategies = append([]Strategy(nil), strategies...)
	}
}

// New returns a reconciler using the default strategies and exclusive consumption.
func New(reporter logging.Reporter, opts ...Option) *Reconciler {
	if reporter == nil {
		reporter = logging.Discard()
	}
	r := &Reconciler{
		policy:     config.ConsumptionExclusive,
		reporter:   reporter,
		strategies: DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the manifest in order and assigns an audio file to each entry.
// Every entry that cannot be matched is reported as a warning and returned in
// Result.Unresolved.
func (r *Reconciler) Resolve(m manifest.Manifest, idx audioindex.Index) Result {
	entries := append([]manifest.Entry(nil), m.Entries...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })

	lookup := Lookup{Index: idx, BookDir: r.bookDir}
	exclusive := r.policy != config.ConsumptionShared

	matches := make([]*Match, len(entries))
	claimed := make(map[string]int)
	claim := func(i int, path string, tier Tier) {
		matches[i] = &Match{Entry: entries[i], Path: path, Tier: tier}
		claimed[filepath.Clean(path)]++
	}
	taken := func(path string) bool {
		return claimed[filepath.Clean(path)] > 0
	}

	// Stored assignments are claimed before any index lookup.
	var rest []Strategy
	for _, strategy := range r.strategies {
		if strategy.Tier != TierStoredPath {
			rest = append(rest, strategy)
			continue
		}
		for i, entry := range entries {
			path, ok := strategy.Resolve(entry, lookup)
			if !ok {
				continue
			}
			if exclusive && taken(path) {
				r.reporter.Warning("stored audio already assigned",
					logging.Int("order", entry.Order),
					logging.String("audio", path),
				)
				continue
			}
			claim(i, path, strategy.Tier)
		}
	}

	for i, entry := range entries {
		if matches[i] != nil {
			continue
		}
		for _, strategy := range rest {
			path, ok := strategy.Resolve(entry, lookup)
			if !ok {
				continue
			}
			if exclusive && taken(path) {
				continue
			}
			claim(i, path, strategy.Tier)
			break
		}
	}

	var result Result
	for i, entry := range entries {
		match := matches[i]
		if match == nil {
			result.Unresolved = append(result.Unresolved, entry)
			r.reporter.Warning("no audio match for manifest entry",
				logging.Int("order", entry.Order),
				logging.String("chapter_title", entry.ChapterTitle),
			)
			continue
		}
		result.Resolved = append(result.Resolved, *match)
	}

	if !exclusive {
		r.reportDuplicates(result.Resolved)
	}
	r.reporter.Event("audio reconciled",
		logging.Int("entries", len(entries)),
		logging.Int("resolved", len(result.Resolved)),
		logging.Int("unresolved", len(result.Unresolved)),
		logging.String("consumption", r.policy),
	)
	return result
}

func (r *Reconciler) reportDuplicates(resolved []Match) {
	seen := make(map[string]int)
	for _, match := range resolved {
		key := filepath.Clean(match.Path)
		if first, ok := seen[key]; ok {
			r.reporter.Warning("audio file backs multiple entries",
				logging.String("audio", match.Path),
				logging.Int("first_order", first),
				logging.Int("order", match.Entry.Order),
			)
			continue
		}
		seen[key] = match.Entry.Order
	}
}
