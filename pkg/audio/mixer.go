package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"riddlecut/pkg/model"

	"github.com/gopxl/beep/v2"
	"github.com/samber/lo"
)

// MixOptions configures a Mixer.
type MixOptions struct {
	SampleRate beep.SampleRate
	// FrameRate is the video frame rate; a looped music asset shorter than one
	// frame is treated as malformed.
	FrameRate int
	// VoiceFadeOut is applied to voice layers that do not request their own.
	VoiceFadeOut float64
	// AllowMissingSFX substitutes silence for sound effects that cannot be loaded.
	AllowMissingSFX bool
	// Volumes holds per-kind defaults used when a layer requests volume 0.
	Volumes map[model.SourceKind]float64
	// MasterGain scales the summed mix.
	MasterGain float64
	Logger     *slog.Logger
}

// DefaultMixOptions returns the mixing defaults for 48kHz / 30fps output.
func DefaultMixOptions() MixOptions {
	return MixOptions{
		SampleRate:   48000,
		FrameRate:    30,
		VoiceFadeOut: 0.05,
		Volumes: map[model.SourceKind]float64{
			model.SourceVoice:           1.0,
			model.SourceSoundEffect:     0.8,
			model.SourceBackgroundMusic: 0.15,
		},
		MasterGain: 1.0,
	}
}

// Mixer places requested layers onto timing windows.
type Mixer struct {
	loader AssetLoader
	opts   MixOptions
	log    *slog.Logger
}

// NewMixer creates a Mixer that resolves assets through loader.
func NewMixer(loader AssetLoader, opts MixOptions) *Mixer {
	def := DefaultMixOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = def.FrameRate
	}
	if opts.Volumes == nil {
		opts.Volumes = def.Volumes
	}
	if opts.MasterGain <= 0 {
		opts.MasterGain = def.MasterGain
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Mixer{loader: loader, opts: opts, log: log}
}

// MixedTimeline is the set of layers placed on the master timeline.
type MixedTimeline struct {
	Layers     []model.AudioLayer `json:"layers"`
	Total      float64            `json:"total"`
	SampleRate beep.SampleRate    `json:"sample_rate"`
	MasterGain float64            `json:"master_gain"`
}

// Mix places every requested layer. Layers are emitted in window order and,
// inside a window, in request order. Any failure aborts the whole mix.
func (m *Mixer) Mix(windows []model.TimingWindow, layersBySegment map[string][]model.RequestedLayer) (*MixedTimeline, error) {
	byID := lo.KeyBy(windows, func(w model.TimingWindow) string { return w.SegmentID })
	for id := range layersBySegment {
		if _, ok := byID[id]; !ok {
			return nil, &MixError{Rule: RuleUnknownSegment, SegmentID: id}
		}
	}

	tl := &MixedTimeline{SampleRate: m.opts.SampleRate, MasterGain: m.opts.MasterGain}
	if len(windows) > 0 {
		tl.Total = windows[len(windows)-1].End()
	}

	durations := make(map[string]float64)
	for _, win := range windows {
		for _, req := range layersBySegment[win.SegmentID] {
			layer, err := m.place(win, req, tl.Total, durations)
			if err != nil {
				return nil, err
			}
			tl.Layers = append(tl.Layers, layer)
		}
	}
	return tl, nil
}

func (m *Mixer) place(win model.TimingWindow, req model.RequestedLayer, total float64, durations map[string]float64) (model.AudioLayer, error) {
	fail := func(rule MixRule, err error) (model.AudioLayer, error) {
		return model.AudioLayer{}, &MixError{Rule: rule, SegmentID: win.SegmentID, Asset: req.Asset, Err: err}
	}

	if req.Asset == "" {
		return fail(RuleInvalidLayer, errors.New("layer has no asset"))
	}
	if req.Offset < 0 || req.FadeIn < 0 || req.FadeOut < 0 || req.Volume < 0 {
		return fail(RuleInvalidLayer, errors.New("negative offset, fade or volume"))
	}

	layer := model.AudioLayer{
		SegmentID:        win.SegmentID,
		Kind:             req.Kind,
		Asset:            req.Asset,
		VolumeMultiplier: req.Volume,
		FadeIn:           req.FadeIn,
		FadeOut:          req.FadeOut,
		Loops:            1,
	}
	if layer.VolumeMultiplier == 0 {
		layer.VolumeMultiplier = m.opts.Volumes[req.Kind]
	}

	src, err := m.probe(req.Asset, durations)
	switch {
	case err == nil:
		layer.SourceDuration = src
	case errors.Is(err, ErrAssetNotFound) && req.Kind == model.SourceSoundEffect && m.opts.AllowMissingSFX:
		m.log.Warn("Sound effect missing, substituting silence", "segment", win.SegmentID, "asset", req.Asset)
		layer.Silent = true
	default:
		return fail(RuleMissingAsset, err)
	}

	switch req.Kind {
	case model.SourceVoice:
		if win.BaseDuration <= 0 {
			return fail(RuleVoiceWithoutSpeech, nil)
		}
		layer.StartOffset = win.Start
		layer.Duration = math.Min(src, win.Duration)
		if layer.FadeOut == 0 {
			layer.FadeOut = m.opts.VoiceFadeOut
		}

	case model.SourceSoundEffect:
		layer.StartOffset = win.Start + req.Offset
		if req.Anchor == model.AnchorAfterVoice {
			layer.StartOffset += win.BaseDuration
		}
		if layer.StartOffset >= total {
			return fail(RuleInvalidLayer, fmt.Errorf("starts at %.3fs, after the timeline ends at %.3fs", layer.StartOffset, total))
		}
		if layer.Silent {
			layer.Duration = win.End() - layer.StartOffset
			if layer.Duration <= 0 {
				layer.Duration = total - layer.StartOffset
			}
		} else {
			layer.Duration = math.Min(src, total-layer.StartOffset)
		}

	case model.SourceBackgroundMusic:
		frame := 1.0 / float64(m.opts.FrameRate)
		if src < frame {
			return fail(RuleDegenerateTrack, fmt.Errorf("asset is %.4fs, shorter than one frame", src))
		}
		layer.StartOffset = win.Start
		layer.Loops = int(math.Ceil(win.Duration / src))
		layer.Duration = win.Duration

	default:
		return fail(RuleInvalidLayer, fmt.Errorf("unknown layer kind %q", req.Kind))
	}

	return layer, nil
}

func (m *Mixer) probe(ref string, cache map[string]float64) (float64, error) {
	if d, ok := cache[ref]; ok {
		return d, nil
	}
	d, err := GetDuration(m.loader, ref)
	if err != nil {
		return 0, err
	}
	cache[ref] = d
	return d, nil
}
