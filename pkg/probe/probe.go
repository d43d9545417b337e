// Package probe runs startup checks on the directories and assets a render
// depends on, so a misconfigured install fails before any work is done.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"riddlecut/pkg/audio"
)

// CheckFunc returns nil if the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // failure aborts startup
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Timeout bounds each check.
const Timeout = 5 * time.Second

// Run executes probes in order.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))
	for i, p := range probes {
		start := time.Now()
		pctx, cancel := context.WithTimeout(ctx, Timeout)
		err := p.Check(pctx)
		cancel()
		results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
	}
	return results
}

// AnalyzeResults logs every result and joins the errors of failed critical
// probes.
func AnalyzeResults(results []Result) error {
	var criticalErrors []error

	slog.Info("Startup Checks Summary")
	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
		}
		msg := fmt.Sprintf("[%s] %-20s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))

		switch {
		case r.Error == nil:
			slog.Info(msg)
		case r.Probe.Critical:
			slog.Error(msg, "error", r.Error)
			criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		default:
			slog.Warn(msg, "error", r.Error)
		}
	}
	return errors.Join(criticalErrors...)
}

// Dir checks that path is an existing directory.
func Dir(name, path string, critical bool) Probe {
	return Probe{Name: name, Critical: critical, Check: func(context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", path)
		}
		return nil
	}}
}

// Writable checks that files can be created in dir, creating it if needed.
func Writable(name, dir string) Probe {
	return Probe{Name: name, Critical: true, Check: func(context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return err
		}
		f.Close()
		return os.Remove(f.Name())
	}}
}

// Asset checks that ref decodes through loader and is not empty. An empty
// ref passes, meaning the asset is not configured.
func Asset(name string, loader audio.AssetLoader, ref string) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) error {
		if ref == "" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d, err := audio.GetDuration(loader, ref)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("%s is empty", filepath.Base(ref))
		}
		return nil
	}}
}
