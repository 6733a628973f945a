package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/weedbox/blackjacktable"
	blackjackserver "github.com/weedbox/blackjacktable/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Server serverConfig `yaml:"server"`
	Log    logConfig    `yaml:"log"`
}

type serverConfig struct {
	Addr               string `yaml:"addr"`
	WSAddr             string `yaml:"ws_addr"`
	RecordsPath        string `yaml:"records_path"`
	ConnTimeoutSeconds int    `yaml:"conn_timeout_seconds"`

	RuleOverrides ruleOverridesConfig `yaml:"rules"`
}

type ruleOverridesConfig struct {
	NumberOfDecks         *int     `yaml:"number_of_decks"`
	BlackjackPayout       *float64 `yaml:"blackjack_payout"`
	DealerHitsSoft17      *bool    `yaml:"dealer_hits_soft_17"`
	AllowDoubleAfterSplit *bool    `yaml:"allow_double_after_split"`
	AllowSurrender        *bool    `yaml:"allow_surrender"`
	MaxSplits             *int     `yaml:"max_splits"`
}

type logConfig struct {
	Path       string `yaml:"path"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{
		Server: serverConfig{
			Addr:               ":9000",
			RecordsPath:        "game_records.json",
			ConnTimeoutSeconds: 60,
		},
		Log: logConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cfg logConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			level,
		),
	}

	if cfg.Path != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(writer),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

func main() {
	configPath := flag.String("c", "", "path to config file (yaml)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	srv, err := blackjackserver.NewServer(blackjackserver.Config{
		Addr:        cfg.Server.Addr,
		WSAddr:      cfg.Server.WSAddr,
		RecordsPath: cfg.Server.RecordsPath,
		ConnTimeout: time.Duration(cfg.Server.ConnTimeoutSeconds) * time.Second,
		RuleOverrides: &blackjacktable.RuleOverrides{
			NumberOfDecks:         cfg.Server.RuleOverrides.NumberOfDecks,
			BlackjackPayout:       cfg.Server.RuleOverrides.BlackjackPayout,
			DealerHitsSoft17:      cfg.Server.RuleOverrides.DealerHitsSoft17,
			AllowDoubleAfterSplit: cfg.Server.RuleOverrides.AllowDoubleAfterSplit,
			AllowSurrender:        cfg.Server.RuleOverrides.AllowSurrender,
			MaxSplits:             cfg.Server.RuleOverrides.MaxSplits,
		},
	}, blackjackserver.WithLogger(logger))
	if err != nil {
		logger.Fatal("create server failed", zap.Error(err))
	}

	if err := srv.Start(); err != nil {
		logger.Fatal("start server failed", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	srv.Close()
}
