package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/simonhull/audiometa"
	"golang.org/x/sync/errgroup"

	"epub2audio/internal/config"
	"epub2audio/internal/deps"
	"epub2audio/internal/media/ffprobe"
	"epub2audio/internal/services"
)

// Prober returns the duration of an audio file in whole milliseconds.
type Prober interface {
	DurationMs(ctx context.Context, path string) (int64, error)
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, path string) (int64, error)

func (f Func) DurationMs(ctx context.Context, path string) (int64, error) {
	return f(ctx, path)
}

// FFprobe probes durations with the ffprobe binary.
type FFprobe struct {
	Binary  string
	Timeout time.Duration
	Run     ffprobe.Runner
}

func (p FFprobe) DurationMs(ctx context.Context, path string) (int64, error) {
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()
	seconds, err := ffprobe.Duration(ctx, p.Run, p.Binary, path)
	if err != nil {
		return 0, wrapProbe(ctx, path, err)
	}
	return ffprobe.Milliseconds(seconds), nil
}

// Native probes durations by parsing the container with audiometa.
type Native struct {
	Timeout time.Duration
}

func (p Native) DurationMs(ctx context.Context, path string) (int64, error) {
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return 0, wrapProbe(ctx, path, err)
	}
	defer file.Close()
	if file.Audio.Duration <= 0 {
		return 0, wrapProbe(ctx, path, errors.New("no audio duration in container"))
	}
	return ffprobe.Milliseconds(file.Audio.Duration.Seconds()), nil
}

// New selects the backend configured in [audio].
func New(cfg *config.Config) Prober {
	if cfg == nil {
		return FFprobe{}
	}
	if cfg.Audio.ProbeBackend == config.ProbeBackendNative {
		return Native{Timeout: cfg.ProbeTimeout()}
	}
	return FFprobe{Binary: deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()), Timeout: cfg.ProbeTimeout()}
}

// All probes paths with at most workers concurrent probes. Durations are
// returned in input order.
func All(ctx context.Context, p Prober, paths []string, workers int) ([]int64, error) {
	if p == nil {
		return nil, errors.New("probe: nil prober")
	}
	if workers <= 0 {
		workers = 1
	}
	durations := make([]int64, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			ms, err := p.DurationMs(groupCtx, path)
			if err != nil {
				if errors.Is(err, services.ErrProbe) {
					return err
				}
				return services.Wrap(services.ErrProbe, "assembly", "probe", fmt.Sprintf("probe %s", path), err)
			}
			if ms < 0 {
				ms = 0
			}
			durations[i] = ms
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return durations, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func wrapProbe(ctx context.Context, path string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrProbe, "assembly", "probe", fmt.Sprintf("probe %s timed out", path), errors.Join(services.ErrTimeout, err))
	}
	return services.Wrap(services.ErrProbe, "assembly", "probe", fmt.Sprintf("probe %s", path), err)
}
