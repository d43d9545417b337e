package timing

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"riddlecut/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func narrated(id string, kind model.Kind, dur float64) model.Segment {
	return model.Segment{ID: id, Kind: kind, DisplayText: id, Narration: &model.NarrationTrack{AudioDuration: dur}}
}

func silent(id string, kind model.Kind) model.Segment {
	return model.Segment{ID: id, Kind: kind}
}

func riddlePolicy() Policy {
	return Policy{Rules: map[model.Kind]Rule{
		model.KindQuestion: {Padding: 1.0},
		model.KindThinking: {Padding: 6.0},
		model.KindAnswer:   {Padding: 1.5},
	}}
}

func TestCompute_QuestionThinkingAnswer(t *testing.T) {
	segs := []model.Segment{
		narrated("q", model.KindQuestion, 4.0),
		silent("t", model.KindThinking),
		narrated("a", model.KindAnswer, 3.0),
	}

	windows, err := Compute(segs, riddlePolicy(), Bounds{MinTotal: 5, MaxTotal: 60})
	require.NoError(t, err)
	require.Len(t, windows, 3)

	want := []struct{ start, dur, base, pad float64 }{
		{0, 5.0, 4.0, 1.0},
		{5.0, 6.0, 0, 6.0},
		{11.0, 4.5, 3.0, 1.5},
	}
	for i, w := range want {
		assert.Equal(t, segs[i].ID, windows[i].SegmentID)
		assert.Equal(t, segs[i].Kind, windows[i].Kind)
		assert.InDelta(t, w.start, windows[i].Start, 1e-9, "start of %s", segs[i].ID)
		assert.InDelta(t, w.dur, windows[i].Duration, 1e-9, "duration of %s", segs[i].ID)
		assert.InDelta(t, w.base, windows[i].BaseDuration, 1e-9)
		assert.InDelta(t, w.pad, windows[i].Padding, 1e-9)
	}
	assert.InDelta(t, 15.5, Total(windows), 1e-9)
}

func TestCompute_Contiguous(t *testing.T) {
	segs := []model.Segment{
		narrated("hook", model.KindHook, 1.7),
		narrated("q", model.KindQuestion, 6.13),
		silent("think", model.KindThinking),
		narrated("a", model.KindAnswer, 2.91),
		narrated("tr", model.KindTransition, 0.8),
		narrated("q2", model.KindQuestion, 5.05),
		silent("think2", model.KindThinking),
		narrated("a2", model.KindAnswer, 3.33),
		narrated("cta", model.KindCTA, 2.2),
	}

	windows, err := Compute(segs, DefaultPolicy(), DefaultBounds())
	require.NoError(t, err)

	sum := 0.0
	for i, w := range windows {
		assert.Greater(t, w.Duration, 0.0)
		assert.Equal(t, w.BaseDuration+w.Padding, w.Duration)
		if i > 0 {
			assert.Equal(t, windows[i-1].Start+windows[i-1].Duration, w.Start, "window %d not contiguous", i)
		}
		sum += w.Duration
	}
	last := windows[len(windows)-1]
	assert.Equal(t, sum, last.Start+last.Duration)
}

func TestCompute_UnknownKindUsesQuestionRule(t *testing.T) {
	segs := []model.Segment{narrated("x", model.Kind("outro"), 9.0)}
	windows, err := Compute(segs, riddlePolicy(), Bounds{MinTotal: 0, MaxTotal: 60})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, windows[0].Padding, 1e-9)
}

func TestCompute_MinDurationRaisesPadding(t *testing.T) {
	p := Policy{Rules: map[model.Kind]Rule{
		model.KindQuestion: {Padding: 0.5},
		model.KindCTA:      {Padding: 0.5, MinDuration: 3.0},
	}}
	segs := []model.Segment{narrated("q", model.KindQuestion, 8), narrated("cta", model.KindCTA, 1.0)}
	windows, err := Compute(segs, p, Bounds{MaxTotal: 60})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, windows[1].Padding, 1e-9)
	assert.InDelta(t, 3.0, windows[1].Duration, 1e-9)
}

func TestCompute_Errors(t *testing.T) {
	bounds := Bounds{MinTotal: 5, MaxTotal: 20}

	tests := []struct {
		name   string
		segs   []model.Segment
		policy Policy
		rule   Violation
		id     string
	}{
		{
			name: "BelowMinimum",
			segs: []model.Segment{narrated("q", model.KindQuestion, 1.0)},
			rule: BelowMinTotal,
		},
		{
			name: "AboveMaximum",
			segs: []model.Segment{narrated("q", model.KindQuestion, 30.0)},
			rule: AboveMaxTotal,
		},
		{
			name: "MissingID",
			segs: []model.Segment{narrated("", model.KindQuestion, 6.0)},
			rule: MissingID,
		},
		{
			name: "DuplicateID",
			segs: []model.Segment{narrated("q", model.KindQuestion, 3.0), narrated("q", model.KindAnswer, 3.0)},
			rule: DuplicateID,
			id:   "q",
		},
		{
			name: "ZeroNarration",
			segs: []model.Segment{narrated("q", model.KindQuestion, 0)},
			rule: InvalidNarration,
			id:   "q",
		},
		{
			name: "NaNNarration",
			segs: []model.Segment{narrated("q", model.KindQuestion, math.NaN()), narrated("a", model.KindAnswer, 12)},
			rule: InvalidNarration,
			id:   "q",
		},
		{
			name: "InfiniteNarration",
			segs: []model.Segment{narrated("q", model.KindQuestion, math.Inf(1))},
			rule: InvalidNarration,
			id:   "q",
		},
		{
			name:   "NaNPadding",
			segs:   []model.Segment{narrated("q", model.KindQuestion, 8), silent("t", model.KindThinking)},
			policy: Policy{Rules: map[model.Kind]Rule{model.KindQuestion: {Padding: 1}, model.KindThinking: {Padding: math.NaN()}}},
			rule:   NonPositiveDuration,
			id:     "t",
		},
		{
			name:   "NonPositiveSegment",
			segs:   []model.Segment{narrated("q", model.KindQuestion, 8), silent("t", model.KindThinking)},
			policy: Policy{Rules: map[model.Kind]Rule{model.KindQuestion: {Padding: 1}, model.KindThinking: {}}},
			rule:   NonPositiveDuration,
			id:     "t",
		},
		{
			name: "HookNotFirst",
			segs: []model.Segment{narrated("q", model.KindQuestion, 4), narrated("h", model.KindHook, 2)},
			rule: SegmentOrder,
			id:   "h",
		},
		{
			name: "CTANotLast",
			segs: []model.Segment{narrated("c", model.KindCTA, 2), narrated("q", model.KindQuestion, 4)},
			rule: SegmentOrder,
			id:   "c",
		},
		{
			name: "TransitionAfterSilence",
			segs: []model.Segment{
				narrated("q", model.KindQuestion, 4),
				silent("t", model.KindThinking),
				narrated("tr", model.KindTransition, 1),
				narrated("a", model.KindAnswer, 2),
			},
			rule: SegmentOrder,
			id:   "tr",
		},
		{
			name: "TransitionLast",
			segs: []model.Segment{narrated("q", model.KindQuestion, 6), narrated("tr", model.KindTransition, 1)},
			rule: SegmentOrder,
			id:   "tr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := tt.policy
			if policy.Rules == nil {
				policy = DefaultPolicy()
			}
			windows, err := Compute(tt.segs, policy, bounds)
			require.Error(t, err)
			assert.Nil(t, windows, "no partial windows on error")

			var terr *Error
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tt.rule, terr.Rule)
			assert.Equal(t, tt.id, terr.SegmentID)
			assert.Contains(t, err.Error(), string(tt.rule))
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{Rules: map[model.Kind]Rule{model.KindAnswer: {Padding: 1}}}.Validate())
	assert.Error(t, Policy{Rules: map[model.Kind]Rule{model.KindQuestion: {Padding: -1}}}.Validate())
	assert.Error(t, Policy{Rules: map[model.Kind]Rule{model.KindQuestion: {Padding: math.NaN()}}}.Validate())
	assert.Error(t, Policy{Rules: map[model.Kind]Rule{model.KindQuestion: {Padding: 1, MinDuration: math.NaN()}}}.Validate())
	assert.Error(t, Policy{Rules: map[model.Kind]Rule{model.KindQuestion: {Padding: math.Inf(1)}}}.Validate())

	assert.NoError(t, DefaultBounds().Validate())
	assert.Error(t, Bounds{MinTotal: 30, MaxTotal: 10}.Validate())
	assert.Error(t, Bounds{MinTotal: -1, MaxTotal: 10}.Validate())
	assert.Error(t, Bounds{MinTotal: math.NaN(), MaxTotal: 10}.Validate())
	assert.Error(t, Bounds{MinTotal: 1, MaxTotal: math.NaN()}.Validate())
}

func TestCompute_DecodedKindsAreNormalized(t *testing.T) {
	var segs []model.Segment
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"h","kind":"Hook","narration":{"audio_duration_seconds":2}},
		{"id":"q","kind":"QUESTION","narration":{"audio_duration_seconds":4}},
		{"id":"tr","kind":"Transition","narration":{"audio_duration_seconds":1}},
		{"id":"a","kind":"Answer","narration":{"audio_duration_seconds":3}},
		{"id":"c","kind":" Cta ","narration":{"audio_duration_seconds":1}}
	]`), &segs))

	windows, err := Compute(segs, DefaultPolicy(), DefaultBounds())
	require.NoError(t, err)
	require.Len(t, windows, 5)
	assert.Equal(t, model.KindHook, windows[0].Kind)
	assert.InDelta(t, 0.3, windows[0].Padding, 1e-9, "hook rule, not the question fallback")
	assert.InDelta(t, 0.2, windows[2].Padding, 1e-9)
	assert.InDelta(t, 1.0, windows[4].Padding, 1e-9, "cta min duration applies")

	var bad []model.Segment
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"c","kind":"Cta","narration":{"audio_duration_seconds":5}},
		{"id":"h1","kind":"Hook","narration":{"audio_duration_seconds":5}},
		{"id":"h2","kind":"Hook","narration":{"audio_duration_seconds":5}}
	]`), &bad))
	_, err = Compute(bad, DefaultPolicy(), DefaultBounds())
	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, SegmentOrder, terr.Rule)
	assert.Equal(t, "c", terr.SegmentID)
}
