package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"riddlecut/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "riddlecut.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 48000, cfg.Audio.SampleRate)
				assert.Equal(t, 1.0, cfg.Timing.Kinds["question"].Padding.Seconds())
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				require.NoError(t, err)
				assert.Contains(t, string(content), "sample_rate: 48000")
				assert.Contains(t, string(content), "# Options: start, after_voice")
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				data := "timing:\n  kinds:\n    thinking:\n      padding: 6s\n  min_total: 5s\naudio:\n  allow_missing_sfx: true\n"
				require.NoError(t, os.WriteFile(configPath, []byte(data), 0o644))
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6.0, cfg.Timing.Kinds["thinking"].Padding.Seconds())
				// kinds not in the file keep their defaults
				assert.Equal(t, 1.5, cfg.Timing.Kinds["answer"].Padding.Seconds())
				assert.Equal(t, 5.0, cfg.Timing.MinTotal.Seconds())
				assert.True(t, cfg.Audio.AllowMissingSFX)
				assert.Equal(t, 1080, cfg.Video.Width)
			},
		},
		{
			name: "UnknownKind",
			setup: func() {
				require.NoError(t, os.WriteFile(configPath, []byte("timing:\n  kinds:\n    outro:\n      padding: 1s\n"), 0o644))
			},
			expectedError: true,
		},
		{
			name: "InvertedBounds",
			setup: func() {
				require.NoError(t, os.WriteFile(configPath, []byte("timing:\n  min_total: 90s\n  max_total: 60s\n"), 0o644))
			},
			expectedError: true,
		},
		{
			name: "BadColor",
			setup: func() {
				require.NoError(t, os.WriteFile(configPath, []byte("video:\n  placeholder_color: blue\n"), 0o644))
			},
			expectedError: true,
		},
		{
			name: "MalformedYAML",
			setup: func() {
				require.NoError(t, os.WriteFile(configPath, []byte("timing: [\n"), 0o644))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "riddlecut.yaml")

	require.NoError(t, GenerateDefault(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "# riddlecut configuration"))

	// existing file is left alone
	require.NoError(t, os.WriteFile(path, []byte("custom"), 0o644))
	require.NoError(t, GenerateDefault(path))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(content))
}

func TestTimingPolicy(t *testing.T) {
	cfg := DefaultConfig()

	p, b, err := cfg.TimingPolicy()
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.RuleFor(model.KindThinking).Padding)
	assert.Equal(t, 3.0, p.RuleFor(model.KindThinking).MinDuration)
	assert.InDelta(t, 0.3, p.RuleFor(model.KindHook).Padding, 1e-9)
	assert.Equal(t, 10.0, b.MinTotal)
	assert.Equal(t, 60.0, b.MaxTotal)

	delete(cfg.Timing.Kinds, "question")
	_, _, err = cfg.TimingPolicy()
	assert.Error(t, err, "question rule is the fallback and must exist")
}

func TestEngineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audio.Volumes["music"] = 0.3
	cfg.Video.FPS = 25

	mix := cfg.MixOptions()
	assert.Equal(t, 0.3, mix.Volumes[model.SourceBackgroundMusic])
	assert.Equal(t, 0.8, mix.Volumes[model.SourceSoundEffect])
	assert.Equal(t, 25, mix.FrameRate)
	assert.InDelta(t, 0.05, mix.VoiceFadeOut, 1e-9)

	vid := cfg.VideoOptions()
	assert.Equal(t, model.Resolution{Width: 1080, Height: 1920}, vid.Resolution)
	assert.Equal(t, color.RGBA{R: 0x12, G: 0x12, B: 0x1c, A: 0xff}, vid.Fill)

	st := cfg.CaptionStyle()
	assert.Equal(t, "&H00FFFFFF", st.Primary)
	assert.Equal(t, "&H0000D7FF", st.Highlight)
	assert.Equal(t, 1920, st.PlayResY)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x80, A: 0xff}, c)

	_, err = ParseColor("#ff80")
	assert.Error(t, err)
	_, err = ParseColor("#gggggg")
	assert.Error(t, err)
}
