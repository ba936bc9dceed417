// Package logging 提供结构化日志（zap）的全局实例与初始化。
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger 全局日志实例
	Logger *zap.Logger

	// Sugar 便捷格式化日志实例
	Sugar *zap.SugaredLogger
)

// Config 日志配置
type Config struct {
	// Level 最低日志级别（debug, info, warn, error）
	Level string `yaml:"level" hcl:"level,optional"`

	// Format 输出格式（console, json）
	Format string `yaml:"format" hcl:"format,optional"`

	// Output 输出目标（stdout, stderr 或文件路径）
	Output string `yaml:"output" hcl:"output,optional"`

	// Development 开发模式（附带调用栈）
	Development bool `yaml:"development" hcl:"development,optional"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	}
}

// Initialize 按配置重建全局日志实例
func Initialize(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writeSyncer zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stderr":
		writeSyncer = zapcore.AddSync(os.Stderr)
	case "stdout":
		writeSyncer = zapcore.AddSync(os.Stdout)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		writeSyncer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)
	if cfg.Development {
		Logger = zap.New(core, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		Logger = zap.New(core, zap.AddCaller())
	}
	Sugar = Logger.Sugar()
	return nil
}

// Sync 刷新缓冲
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Or 返回 l，为 nil 时返回全局日志实例
func Or(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return Logger
}

// Debug 调试级别日志
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Info 信息级别日志
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Warn 警告级别日志
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Error 错误级别日志
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

func init() {
	_ = Initialize(DefaultConfig())
}
