// Package assembly drives one render pass: it resolves timing, fits footage,
// aligns captions and mixes audio into a gapless timeline for the renderer.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"riddlecut/pkg/align"
	"riddlecut/pkg/audio"
	"riddlecut/pkg/captions"
	"riddlecut/pkg/logging"
	"riddlecut/pkg/model"
	"riddlecut/pkg/observe"
	"riddlecut/pkg/timing"
	"riddlecut/pkg/video"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Request is everything one render needs. Segments are in playback order.
type Request struct {
	Segments []model.Segment              `json:"segments"`
	Footage  map[string]model.FootageClip `json:"footage"` // by segment id
	// Layers by segment id. A narrated segment with an audio path gets a
	// voice layer even when none is listed here.
	Layers map[string][]model.RequestedLayer `json:"layers"`
}

// Entry is one window of the finished timeline.
type Entry struct {
	Window     model.TimingWindow `json:"window"`
	Background model.FootageClip  `json:"background"`
	Captions   captions.Overlay   `json:"captions"`
	Words      []model.Word       `json:"words,omitempty"`
}

// Timeline is the Ready output handed to the renderer.
type Timeline struct {
	ID        string               `json:"id"`
	State     State                `json:"state"`
	Entries   []Entry              `json:"entries"`
	Audio     *audio.MixedTimeline `json:"audio"`
	Total     float64              `json:"total"`
	CreatedAt time.Time            `json:"created_at"`
}

// Overlays returns the caption overlays in timeline order.
func (t *Timeline) Overlays() []captions.Overlay {
	return lo.Map(t.Entries, func(e Entry, _ int) captions.Overlay { return e.Captions })
}

// Options configures an Assembler.
type Options struct {
	Policy timing.Policy
	Bounds timing.Bounds
	Layout captions.LayoutOptions
	// Concurrency bounds parallel footage standardization.
	Concurrency int
	Logger      *slog.Logger
	Metrics     *observe.Metrics
}

// Assembler is safe for concurrent use; each Assemble call owns its state.
type Assembler struct {
	mixer   *audio.Mixer
	std     *video.Standardizer
	opts    Options
	log     *slog.Logger
	metrics *observe.Metrics
}

// New creates an Assembler. The policy is expected to be validated already.
func New(mixer *audio.Mixer, std *video.Standardizer, opts Options) *Assembler {
	if len(opts.Policy.Rules) == 0 {
		opts.Policy = timing.DefaultPolicy()
	}
	if opts.Bounds == (timing.Bounds{}) {
		opts.Bounds = timing.DefaultBounds()
	}
	if opts.Layout == (captions.LayoutOptions{}) {
		opts.Layout = captions.DefaultLayout()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	met := opts.Metrics
	if met == nil {
		met = observe.Default()
	}
	return &Assembler{mixer: mixer, std: std, opts: opts, log: log, metrics: met}
}

// run holds the in-progress state of one Assemble call. It is dropped on
// failure or cancellation.
type run struct {
	state   State
	req     Request
	windows []model.TimingWindow
	entries []Entry
	mix     *audio.MixedTimeline
}

func (r *run) advance(next State) {
	if next != r.state+1 {
		panic(fmt.Sprintf("assembly: illegal transition %s -> %s", r.state, next))
	}
	r.state = next
}

// Assemble runs the full pipeline. Any failure before Ready aborts the whole
// assembly with a single *Error; no partial timeline is returned.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Timeline, error) {
	began := time.Now()
	r := &run{state: Collecting, req: req}

	tl, err := a.assemble(ctx, r)
	if err != nil {
		status := "error"
		if isCanceled(err) {
			status = RuleCanceled
		}
		a.metrics.RecordAssembly(ctx, status, time.Since(began), 0)
		ae := wrap(r.state, err)
		a.log.Error("Assembly failed", "state", ae.State, "rule", ae.Rule, "segment", ae.SegmentID, "error", ae.Err)
		return nil, ae
	}

	a.metrics.RecordAssembly(ctx, "ok", time.Since(began), tl.Total)
	a.log.Info("Timeline ready",
		"id", tl.ID,
		"segments", len(tl.Entries),
		"layers", len(tl.Audio.Layers),
		"total", fmt.Sprintf("%.2fs", tl.Total),
		"elapsed", time.Since(began))
	return tl, nil
}

func (a *Assembler) assemble(ctx context.Context, r *run) (*Timeline, error) {
	windows, err := timing.Compute(r.req.Segments, a.opts.Policy, a.opts.Bounds)
	if err != nil {
		return nil, err
	}
	r.windows = windows
	r.advance(TimingResolved)
	a.log.Debug("Timing resolved", "segments", len(windows), "total", timing.Total(windows))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	backgrounds, err := a.standardizeAll(ctx, r)
	if err != nil {
		return nil, err
	}
	r.entries = make([]Entry, len(windows))
	for i, win := range windows {
		seg := &r.req.Segments[i]
		words := a.alignWords(ctx, seg)
		r.entries[i] = Entry{
			Window:     win,
			Background: backgrounds[i],
			Captions:   captions.Layout(seg, win, words, a.opts.Layout),
			Words:      words,
		}
	}
	r.advance(MediaStandardized)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mix, err := a.mixer.Mix(windows, withVoices(r.req.Segments, r.req.Layers))
	if err != nil {
		return nil, err
	}
	for _, l := range mix.Layers {
		logging.Trace(a.log, "Layer", "segment", l.SegmentID, "kind", l.Kind, "asset", l.Asset, "start", l.StartOffset, "duration", l.Duration, "loops", l.Loops)
	}
	r.mix = mix
	r.advance(Mixed)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.advance(Ready)
	return &Timeline{
		ID:        uuid.New().String(),
		State:     r.state,
		Entries:   r.entries,
		Audio:     r.mix,
		Total:     timing.Total(windows),
		CreatedAt: time.Now(),
	}, nil
}

// standardizeAll fits every window's footage in parallel. A clip that cannot
// be standardized is replaced by a placeholder; only cancellation fails.
func (a *Assembler) standardizeAll(ctx context.Context, r *run) ([]model.FootageClip, error) {
	out := make([]model.FootageClip, len(r.windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, win := range r.windows {
		i, win := i, win
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = a.background(gctx, win, r.req.Footage)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) background(ctx context.Context, win model.TimingWindow, footage map[string]model.FootageClip) model.FootageClip {
	clip, ok := footage[win.SegmentID]
	if !ok {
		a.log.Warn("No footage for segment, using placeholder", "segment", win.SegmentID)
		a.metrics.RecordFallback(ctx, "missing")
		return a.std.Placeholder(win.SegmentID, win.Duration)
	}

	fitted, err := a.std.Standardize(clip, win.Duration)
	if err != nil {
		reason := "error"
		var se *video.StandardizationError
		if errors.As(err, &se) {
			reason = string(se.Reason)
		}
		a.log.Warn("Footage rejected, using placeholder", "segment", win.SegmentID, "clip", clip.ID, "error", err)
		a.metrics.RecordFallback(ctx, reason)
		return a.std.Placeholder(win.SegmentID, win.Duration)
	}
	return fitted
}

// alignWords returns nil when the segment has no usable timestamps, which
// turns off highlighting for it.
func (a *Assembler) alignWords(ctx context.Context, seg *model.Segment) []model.Word {
	if !seg.Narrated() || seg.DisplayText == "" {
		return nil
	}
	if !seg.Narration.HasTimestamps() {
		a.log.Debug("Narration has no timestamps, captions unhighlighted", "segment", seg.ID)
		a.metrics.RecordDegraded(ctx, string(seg.Kind))
		return nil
	}
	words, err := align.Align(seg.Narration)
	if err != nil {
		a.log.Warn("Alignment failed, captions unhighlighted", "segment", seg.ID, "error", err)
		a.metrics.RecordDegraded(ctx, string(seg.Kind))
		return nil
	}
	for _, w := range words {
		logging.Trace(a.log, "Word", "segment", seg.ID, "ordinal", w.Ordinal, "text", w.Text, "start", w.StartTime, "end", w.EndTime)
	}
	return words
}

// withVoices returns a copy of layers with a voice layer added for every
// narrated segment that names its audio but did not request one. The caller's
// map is left untouched.
func withVoices(segments []model.Segment, layers map[string][]model.RequestedLayer) map[string][]model.RequestedLayer {
	out := make(map[string][]model.RequestedLayer, len(layers))
	for id, ls := range layers {
		out[id] = ls
	}
	for i := range segments {
		seg := &segments[i]
		if !seg.Narrated() || seg.Narration.AudioPath == "" {
			continue
		}
		if lo.ContainsBy(out[seg.ID], func(l model.RequestedLayer) bool { return l.Kind == model.SourceVoice }) {
			continue
		}
		voice := model.RequestedLayer{Kind: model.SourceVoice, Asset: seg.Narration.AudioPath}
		out[seg.ID] = append([]model.RequestedLayer{voice}, out[seg.ID]...)
	}
	return out
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
