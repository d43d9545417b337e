package align

import (
	"errors"
	"math"
	"testing"

	"riddlecut/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// track builds a narration where every character lasts step seconds.
func track(text string, step float64) *model.NarrationTrack {
	n := &model.NarrationTrack{}
	t := 0.0
	for _, r := range text {
		n.Characters = append(n.Characters, string(r))
		n.CharStartTimes = append(n.CharStartTimes, t)
		t += step
		n.CharEndTimes = append(n.CharEndTimes, t)
	}
	n.AudioDuration = t
	return n
}

func TestAlign_RepeatedWords(t *testing.T) {
	words, err := Align(track("go go go", 0.1))
	require.NoError(t, err)
	require.Len(t, words, 3)

	want := [][2]float64{{0, 0.2}, {0.3, 0.5}, {0.6, 0.8}}
	for i, w := range words {
		assert.Equal(t, "go", w.Text)
		assert.Equal(t, i, w.Ordinal)
		assert.InDelta(t, want[i][0], w.StartTime, 1e-9)
		assert.InDelta(t, want[i][1], w.EndTime, 1e-9)
	}
	assert.NotEqual(t, words[0].StartTime, words[2].StartTime)
}

func TestAlign_EdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		track *model.NarrationTrack
		want  []string
	}{
		{"Nil", nil, nil},
		{"Empty", &model.NarrationTrack{}, nil},
		{"SingleWord", track("riddle", 0.05), []string{"riddle"}},
		{"LeadingTrailingSpace", track("  what am I?  ", 0.05), []string{"what", "am", "I?"}},
		{"MultipleSpaces", track("a \t b\nc", 0.05), []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, err := Align(tt.track)
			require.NoError(t, err)
			var got []string
			for _, w := range words {
				got = append(got, w.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlign_SingleWordSpansClip(t *testing.T) {
	tr := track("echo", 0.25)
	words, err := Align(tr)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, 0.0, words[0].StartTime)
	assert.InDelta(t, tr.AudioDuration, words[0].EndTime, 1e-9)
}

func TestAlign_Monotonic(t *testing.T) {
	words, err := Align(track("I speak without a mouth and hear without ears", 0.07))
	require.NoError(t, err)
	for i := 1; i < len(words); i++ {
		assert.Greater(t, words[i].Ordinal, words[i-1].Ordinal)
		assert.GreaterOrEqual(t, words[i].StartTime, words[i-1].EndTime)
		assert.LessOrEqual(t, words[i].StartTime, words[i].EndTime)
	}
}

func TestAlign_Errors(t *testing.T) {
	mismatch := track("abc", 0.1)
	mismatch.CharEndTimes = mismatch.CharEndTimes[:2]

	backwards := track("abc", 0.1)
	backwards.CharStartTimes[2] = 0.05

	inverted := track("abc", 0.1)
	inverted.CharEndTimes[1] = 0.0

	nanStart := track("abc", 0.1)
	nanStart.CharStartTimes[1] = math.NaN()

	nanEnd := track("abc", 0.1)
	nanEnd.CharEndTimes[2] = math.NaN()

	infEnd := track("abc", 0.1)
	infEnd.CharEndTimes[2] = math.Inf(1)

	for name, tr := range map[string]*model.NarrationTrack{
		"LengthMismatch": mismatch,
		"Backwards":      backwards,
		"Inverted":       inverted,
		"NaNStart":       nanStart,
		"NaNEnd":         nanEnd,
		"InfiniteEnd":    infEnd,
	} {
		t.Run(name, func(t *testing.T) {
			words, err := Align(tr)
			assert.Nil(t, words)
			var aerr *Error
			assert.True(t, errors.As(err, &aerr))
		})
	}
}

func TestBind_ByOrdinal(t *testing.T) {
	words, err := Align(track("the the cat", 0.1))
	require.NoError(t, err)

	bound := Bind(Tokens("The the cat!"), words)
	require.Len(t, bound, 3)
	for i, b := range bound {
		require.NotNil(t, b.Word)
		assert.Equal(t, i, b.Word.Ordinal)
	}
	assert.InDelta(t, 0.4, bound[1].Word.StartTime, 1e-9, "second 'the' must use its own timestamp")
}

func TestBind_MoreTokensThanWords(t *testing.T) {
	words, err := Align(track("one two", 0.1))
	require.NoError(t, err)

	bound := Bind(Tokens("one two three"), words)
	require.Len(t, bound, 3)
	assert.NotNil(t, bound[1].Word)
	assert.Nil(t, bound[2].Word)
}
