package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Timing   TimingConfig   `yaml:"timing"`
	Audio    AudioConfig    `yaml:"audio"`
	Video    VideoConfig    `yaml:"video"`
	Captions CaptionsConfig `yaml:"captions"`
	Assembly AssemblyConfig `yaml:"assembly"`
	Render   RenderConfig   `yaml:"render"`
	Log      LogConfig      `yaml:"log"`
}

// TimingConfig holds per-kind padding rules and total length bounds.
type TimingConfig struct {
	Kinds    map[string]KindTiming `yaml:"kinds"`
	MinTotal Duration              `yaml:"min_total"`
	MaxTotal Duration              `yaml:"max_total"`
}

// KindTiming is the timing rule for one segment kind.
type KindTiming struct {
	Padding     Duration `yaml:"padding"`
	MinDuration Duration `yaml:"min_duration,omitempty"`
}

// AudioConfig holds mixer settings.
type AudioConfig struct {
	AssetDir        string             `yaml:"asset_dir"`
	SampleRate      int                `yaml:"sample_rate"`
	VoiceFadeOut    Duration           `yaml:"voice_fade_out"`
	AllowMissingSFX bool               `yaml:"allow_missing_sfx"`
	MasterGain      float64            `yaml:"master_gain"`
	Volumes         map[string]float64 `yaml:"volumes"` // default volume per layer kind
	Stings          StingsConfig       `yaml:"stings"`
}

// StingsConfig names the sound effects added to thinking and answer beats
// when a job does not request any.
type StingsConfig struct {
	Countdown string `yaml:"countdown"`
	Reveal    string `yaml:"reveal"`
	// RevealAnchor is "start" or "after_voice".
	RevealAnchor string `yaml:"reveal_anchor"`
}

// VideoConfig holds output frame settings.
type VideoConfig struct {
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
	FPS              int    `yaml:"fps"`
	PlaceholderColor string `yaml:"placeholder_color"` // #RRGGBB
}

// CaptionsConfig holds caption line budgets and ASS style.
type CaptionsConfig struct {
	MaxChars       int    `yaml:"max_chars"`
	MaxWords       int    `yaml:"max_words"`
	Font           string `yaml:"font"`
	FontSize       int    `yaml:"font_size"`
	MarginV        int    `yaml:"margin_v"`
	PrimaryColor   string `yaml:"primary_color"`
	HighlightColor string `yaml:"highlight_color"`
}

// AssemblyConfig holds assembler settings.
type AssemblyConfig struct {
	Concurrency int      `yaml:"concurrency"`
	Timeout     Duration `yaml:"timeout"`
}

// RenderConfig holds the renderer hand-off settings.
type RenderConfig struct {
	QueuePath string `yaml:"queue_path"`
	OutputDir string `yaml:"output_dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Engine LogSettings `yaml:"engine"`
	Jobs   LogSettings `yaml:"jobs"`
	Trace  bool        `yaml:"trace"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timing: TimingConfig{
			Kinds: map[string]KindTiming{
				"hook":       {Padding: Duration(300 * time.Millisecond)},
				"question":   {Padding: Duration(1 * time.Second)},
				"thinking":   {Padding: Duration(5 * time.Second), MinDuration: Duration(3 * time.Second)},
				"answer":     {Padding: Duration(1500 * time.Millisecond)},
				"transition": {Padding: Duration(200 * time.Millisecond)},
				"cta":        {Padding: Duration(500 * time.Millisecond), MinDuration: Duration(2 * time.Second)},
			},
			MinTotal: Duration(10 * time.Second),
			MaxTotal: Duration(60 * time.Second),
		},
		Audio: AudioConfig{
			AssetDir:     "assets/audio",
			SampleRate:   48000,
			VoiceFadeOut: Duration(50 * time.Millisecond),
			MasterGain:   1.0,
			Volumes: map[string]float64{
				"voice": 1.0,
				"sfx":   0.8,
				"music": 0.15,
			},
			Stings: StingsConfig{
				Countdown:    "sfx/tick.wav",
				Reveal:       "sfx/reveal.wav",
				RevealAnchor: "start",
			},
		},
		Video: VideoConfig{
			Width:            1080,
			Height:           1920,
			FPS:              30,
			PlaceholderColor: "#12121c",
		},
		Captions: CaptionsConfig{
			MaxChars:       18,
			MaxWords:       4,
			Font:           "Montserrat",
			FontSize:       88,
			MarginV:        640,
			PrimaryColor:   "#ffffff",
			HighlightColor: "#ffd700",
		},
		Assembly: AssemblyConfig{
			Concurrency: 4,
			Timeout:     Duration(2 * time.Minute),
		},
		Render: RenderConfig{
			QueuePath: "data/render_queue.db",
			OutputDir: "out",
		},
		Log: LogConfig{
			Engine: LogSettings{Path: "logs/riddlecut.log", Level: "INFO"},
			Jobs:   LogSettings{Path: "logs/jobs.log", Level: "INFO"},
		},
	}
}

// Load reads the configuration from path, creating it with defaults when it
// does not exist. Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate checks the whole configuration. It is run once by Load so engine
// code can trust the values it is handed.
func (c *Config) Validate() error {
	if _, _, err := c.TimingPolicy(); err != nil {
		return err
	}
	if c.Audio.SampleRate < 8000 {
		return fmt.Errorf("audio.sample_rate %d is too low", c.Audio.SampleRate)
	}
	if c.Audio.MasterGain <= 0 {
		return fmt.Errorf("audio.master_gain must be positive")
	}
	for kind, v := range c.Audio.Volumes {
		if v < 0 {
			return fmt.Errorf("audio.volumes.%s is negative", kind)
		}
	}
	switch c.Audio.Stings.RevealAnchor {
	case "", "start", "after_voice":
	default:
		return fmt.Errorf("audio.stings.reveal_anchor %q must be start or after_voice", c.Audio.Stings.RevealAnchor)
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 || c.Video.FPS <= 0 {
		return fmt.Errorf("video: width, height and fps must be positive")
	}
	for name, col := range map[string]string{
		"video.placeholder_color":  c.Video.PlaceholderColor,
		"captions.primary_color":   c.Captions.PrimaryColor,
		"captions.highlight_color": c.Captions.HighlightColor,
	} {
		if !hexColor.MatchString(col) {
			return fmt.Errorf("%s %q is not #RRGGBB", name, col)
		}
	}
	if c.Captions.MaxChars <= 0 || c.Captions.MaxWords <= 0 {
		return fmt.Errorf("captions: max_chars and max_words must be positive")
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# riddlecut configuration
# ------------------------
# Durations accept ns, us, ms, s, m, h (e.g. 1.5s, 750ms).
# Timing kinds: hook, question, thinking, answer, transition, cta.
# Unknown kinds use the question rule.

`)
	data = append(header, data...)

	reAnchor := regexp.MustCompile(`(?m)^(\s+)reveal_anchor:`)
	data = reAnchor.ReplaceAll(data, []byte("${1}# Options: start, after_voice\n${1}reveal_anchor:"))

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: DEBUG, INFO, WARN, ERROR\n${1}level:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
