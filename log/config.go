package log

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config controls the root logger.
type Config struct {
	WriteFile    bool   `yaml:"writeFile"`
	FileRoot     string `yaml:"fileRoot"`
	FilePath     string `yaml:"filePath"`
	MaxBytesSize uint   `yaml:"maxBytesSize"`
	Level        string `yaml:"level"`
}

// Setup applies the configuration to the root logger. When the log file
// has already grown to MaxBytesSize or beyond, it is truncated instead
// of appended to; a zero MaxBytesSize means no cap.
func Setup(cfg Config) error {
	if cfg.Level != "" {
		if err := SetLevel(cfg.Level); err != nil {
			return err
		}
	}
	if cfg.WriteFile {
		path := filepath.Join(cfg.FileRoot, cfg.FilePath)
		flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if cfg.MaxBytesSize > 0 {
			if info, err := os.Stat(path); err == nil && info.Size() >= int64(cfg.MaxBytesSize) {
				flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			}
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		SetOutput(f)
	}
	return nil
}
