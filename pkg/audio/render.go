package audio

import (
	"fmt"
	"io"
	"math"

	"riddlecut/pkg/model"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/wav"
)

const resampleQuality = 4

// Samples converts seconds to a sample count at sr, rounding to the nearest
// sample.
func Samples(sr beep.SampleRate, sec float64) int {
	return int(math.Round(sec * float64(sr)))
}

// Render builds a single streamer for the mixed timeline. The result is
// exactly Samples(tl.SampleRate, tl.Total) samples long. The returned close
// function releases every opened asset and must be called once streaming is
// done.
func Render(tl *MixedTimeline, loader AssetLoader) (beep.Streamer, func(), error) {
	var closers []beep.StreamSeekCloser
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	total := Samples(tl.SampleRate, tl.Total)
	tracks := []beep.Streamer{beep.Silence(total)}

	for _, layer := range tl.Layers {
		if layer.Silent || layer.Duration <= 0 {
			continue
		}
		src, format, err := loader.Open(layer.Asset)
		if err != nil {
			closeAll()
			return nil, nil, &MixError{Rule: RuleMissingAsset, SegmentID: layer.SegmentID, Asset: layer.Asset, Err: err}
		}
		closers = append(closers, src)

		track, err := layerStreamer(layer, src, format.SampleRate, tl.SampleRate)
		if err != nil {
			closeAll()
			return nil, nil, &MixError{Rule: RuleDegenerateTrack, SegmentID: layer.SegmentID, Asset: layer.Asset, Err: err}
		}
		tracks = append(tracks, track)
	}

	var mixed beep.Streamer = beep.Mix(tracks...)
	if tl.MasterGain > 0 && tl.MasterGain != 1 {
		mixed = &effects.Gain{Streamer: mixed, Gain: tl.MasterGain - 1}
	}
	return beep.Take(total, mixed), closeAll, nil
}

func layerStreamer(layer model.AudioLayer, src beep.StreamSeeker, from, to beep.SampleRate) (beep.Streamer, error) {
	var s beep.Streamer = src
	if layer.Kind == model.SourceBackgroundMusic {
		looped, err := beep.Loop2(src)
		if err != nil {
			return nil, fmt.Errorf("loop %s: %w", layer.Asset, err)
		}
		s = looped
	}
	if from != to {
		s = beep.Resample(resampleQuality, from, to, s)
	}

	n := Samples(to, layer.Duration)
	env := NewEnvelope(beep.Take(n, s), layer.VolumeMultiplier, Samples(to, layer.FadeIn), Samples(to, layer.FadeOut), n)
	return beep.Seq(beep.Silence(Samples(to, layer.StartOffset)), env), nil
}

// WriteWAV renders the timeline as 16-bit stereo PCM.
func WriteWAV(w io.WriteSeeker, tl *MixedTimeline, loader AssetLoader) error {
	s, closeAll, err := Render(tl, loader)
	if err != nil {
		return err
	}
	defer closeAll()

	format := beep.Format{SampleRate: tl.SampleRate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(w, s, format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}
