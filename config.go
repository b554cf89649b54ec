package arqstream

import (
	_ "embed"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arqstream/arqstream/arq"
)

//go:embed config.default.yaml
var defaultConfigYAML []byte

// Config collects every receiver-side tunable named across the
// component design: buffer sizing, ACK/NAK cadence, clock drift
// correction, and key-rotation overlap. It is YAML-loadable, mirroring
// the teacher's own settings file.
type Config struct {
	RecvBufferSize    int           `yaml:"RecvBufferSize"`
	TSBPDLatency      time.Duration `yaml:"TSBPDLatency"`
	LightAckThreshold int           `yaml:"LightAckThreshold"`
	NAKInterval       time.Duration `yaml:"NAKInterval"`
	AckHistorySize    int           `yaml:"AckHistorySize"`
	FullAckPeriod     time.Duration `yaml:"FullAckPeriod"`
	CloseTimeout      time.Duration `yaml:"CloseTimeout"`
	ClockDriftStep    float64       `yaml:"ClockDriftStep"`
	ClockDriftThresh  time.Duration `yaml:"ClockDriftThreshold"`
	DropTooLateGrace  time.Duration `yaml:"DropTooLateGrace"`
	KeyOverlapWindow  time.Duration `yaml:"KeyOverlapWindow"`
}

// DefaultConfig returns the package defaults named in the component
// design (full-ACK every 10ms, NAK floor 20ms, light-ACK every 64
// packets, 1/16 clock drift step, zero-grace strict drop deadline).
func DefaultConfig() Config {
	return Config{
		RecvBufferSize:    8192,
		TSBPDLatency:      120 * time.Millisecond,
		LightAckThreshold: 64,
		NAKInterval:       20 * time.Millisecond,
		AckHistorySize:    16,
		FullAckPeriod:     10 * time.Millisecond,
		CloseTimeout:      30 * time.Second,
		ClockDriftStep:    1.0 / 16.0,
		ClockDriftThresh:  5 * time.Millisecond,
		DropTooLateGrace:  0,
		KeyOverlapWindow:  2 * time.Second,
	}
}

// rawConfig mirrors Config with duration fields as YAML-friendly
// strings (yaml.v3 has no built-in time.Duration support), parsed into
// a Config by LoadConfig.
type rawConfig struct {
	RecvBufferSize    int     `yaml:"RecvBufferSize"`
	TSBPDLatency      string  `yaml:"TSBPDLatency"`
	LightAckThreshold int     `yaml:"LightAckThreshold"`
	NAKInterval       string  `yaml:"NAKInterval"`
	AckHistorySize    int     `yaml:"AckHistorySize"`
	FullAckPeriod     string  `yaml:"FullAckPeriod"`
	CloseTimeout      string  `yaml:"CloseTimeout"`
	ClockDriftStep    float64 `yaml:"ClockDriftStep"`
	ClockDriftThresh  string  `yaml:"ClockDriftThreshold"`
	DropTooLateGrace  string  `yaml:"DropTooLateGrace"`
	KeyOverlapWindow  string  `yaml:"KeyOverlapWindow"`
}

// LoadConfig reads a YAML document and overlays it onto DefaultConfig,
// so any field the document omits (or the document itself being
// empty) keeps its default value.
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		data = defaultConfigYAML
	}

	raw := rawConfig{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, err
	}

	if raw.RecvBufferSize != 0 {
		cfg.RecvBufferSize = raw.RecvBufferSize
	}
	if raw.LightAckThreshold != 0 {
		cfg.LightAckThreshold = raw.LightAckThreshold
	}
	if raw.AckHistorySize != 0 {
		cfg.AckHistorySize = raw.AckHistorySize
	}
	if raw.ClockDriftStep != 0 {
		cfg.ClockDriftStep = raw.ClockDriftStep
	}

	durations := []struct {
		src string
		dst *time.Duration
	}{
		{raw.TSBPDLatency, &cfg.TSBPDLatency},
		{raw.NAKInterval, &cfg.NAKInterval},
		{raw.FullAckPeriod, &cfg.FullAckPeriod},
		{raw.CloseTimeout, &cfg.CloseTimeout},
		{raw.ClockDriftThresh, &cfg.ClockDriftThresh},
		{raw.DropTooLateGrace, &cfg.DropTooLateGrace},
		{raw.KeyOverlapWindow, &cfg.KeyOverlapWindow},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.src)
		if err != nil {
			return Config{}, err
		}
		*d.dst = parsed
	}

	return cfg, nil
}

// engineConfig translates the ambient Config into the arq package's
// own narrower Config type.
func (c Config) engineConfig() arq.Config {
	return arq.Config{
		LightAckThreshold: c.LightAckThreshold,
		NAKInterval:       c.NAKInterval,
		AckHistorySize:    c.AckHistorySize,
		BufferCapacity:    c.RecvBufferSize,
		TSBPDLatency:      c.TSBPDLatency,
		DropTooLateGrace:  c.DropTooLateGrace,
		ClockDriftStep:    c.ClockDriftStep,
		ClockDriftThresh:  c.ClockDriftThresh,
	}
}
