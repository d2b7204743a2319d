package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var logger = log.New(os.Stdout)

func InitLog(appName string, logLevel string) {
	// 使用 os.Stdout 而不是 os.Stderr，IDE 控制台会把 stderr 全部标红
	logger = log.New(os.Stdout)
	logger.SetPrefix(appName)
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat(time.DateTime)

	// 显示文件名和行号
	logger.SetReportCaller(true)
	SetLevel(logLevel)
}

// SetLevel 调整日志级别，配置热更新时也会调用
func SetLevel(logLevel string) {
	// 默认为 info 级别
	switch strings.ToLower(logLevel) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

// SetOutput 测试里用来收集日志
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Fatal(format string, args ...any) {
	if len(args) == 0 {
		logger.Fatalf(format, args...)
	} else {
		logger.Fatalf(format, args...)
	}
}

func Info(format string, args ...any) {
	if len(args) == 0 {
		logger.Infof(format, args...)
	} else {
		logger.Infof(format, args...)
	}
}

func Warn(format string, args ...any) {
	if len(args) == 0 {
		logger.Warnf(format, args...)
	} else {
		logger.Warnf(format, args...)
	}
}

func Error(format string, args ...any) {
	if len(args) == 0 {
		logger.Errorf(format, args...)
	} else {
		logger.Errorf(format, args...)
	}
}

func Debug(format string, args ...any) {
	if len(args) == 0 {
		logger.Debugf(format, args...)
	} else {
		logger.Debugf(format, args...)
	}
}
