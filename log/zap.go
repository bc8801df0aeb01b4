package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"moul.io/zapfilter"
)

// FileConfig is the content of the file passed via --log-config.
// Filter uses the zapfilter rule syntax, e.g. "info:* debug:relay.hub warn+:session.*"
type FileConfig struct {
	Format string `yaml:"format"`
	Filter string `yaml:"filter"`
}

func ReadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log config: %w", err)
	}
	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse log config %s: %w", path, err)
	}
	return cfg, nil
}

// NewFiltered creates a logger whose entries are selected by the zapfilter rules.
// The level gate of the returned logger is debug, the rules decide what passes.
//
//nolint:whitespace // can't make both editor and linter happy
func NewFiltered(
	w io.Writer, cfg *FileConfig, opts ...Option,
) (*Logger, error) {
	filter, err := zapfilter.ParseRules(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("invalid log filter %q: %w", cfg.Filter, err)
	}
	atom := zap.NewAtomicLevelAt(DebugLevel)
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapfilter.NewFilteringCore(
		zapcore.NewCore(enc, zapcore.AddSync(w), atom),
		filter)
	return &Logger{l: zap.New(core, opts...), level: atom}, nil
}
