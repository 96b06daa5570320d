package logging

import (
	"io"
	"os"
	"path/filepath"

	"pathserver/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the global logrus logger: the level from cfg, and output
// to stdout plus a rotated file under cfg.Dir. An empty Dir logs to stdout only.
func Setup(cfg config.LogConfig, name string) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Invalid log level '%s', using 'info'", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if cfg.Dir == "" {
		log.SetOutput(os.Stdout)
		return
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		log.SetOutput(os.Stdout)
		log.Warnf("cannot create log dir %s, logging to stdout only: %v", cfg.Dir, err)
		return
	}

	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name+".log"),
		MaxSize:    100,  // MB
		MaxBackups: 7,    // Keep 7 old log files
		MaxAge:     30,   // Days
		Compress:   true, // Compress old log files
	}

	// Output to both file and stdout (for systemd)
	log.SetOutput(io.MultiWriter(os.Stdout, fileLogger))
	log.Infof("Logging initialized: file=%s, level=%s", fileLogger.Filename, level)
}
