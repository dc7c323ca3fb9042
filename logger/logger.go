package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/op/go-logging"
)

const bufferSize = 10240

var logger *logging.Logger

type logEntry struct {
	time  time.Time
	level logging.Level
	log   string
}

// The buffer is written from request handlers, the cron jobs and the bot
// goroutine, and read by the log endpoints.
var (
	logBufferMu sync.Mutex
	logBuffer   []*logEntry
)

func init() {
	InitLogger(logging.INFO)
}

func InitLogger(level logging.Level) {
	newLogger := logging.MustGetLogger("madmin")

	backend := logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(`%{time:2006/01/02 15:04:05} %{level} - %{message}`)
	backendFormatter := logging.NewBackendFormatter(backend, format)
	backendLeveled := logging.AddModuleLevel(backendFormatter)
	backendLeveled.SetLevel(level, "madmin")
	newLogger.SetBackend(backendLeveled)

	logger = newLogger
}

func Debug(args ...interface{}) {
	logger.Debug(args...)
	addToBuffer(logging.DEBUG, fmt.Sprint(args...))
}

func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
	addToBuffer(logging.DEBUG, fmt.Sprintf(format, args...))
}

func Info(args ...interface{}) {
	logger.Info(args...)
	addToBuffer(logging.INFO, fmt.Sprint(args...))
}

func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
	addToBuffer(logging.INFO, fmt.Sprintf(format, args...))
}

func Warning(args ...interface{}) {
	logger.Warning(args...)
	addToBuffer(logging.WARNING, fmt.Sprint(args...))
}

func Warningf(format string, args ...interface{}) {
	logger.Warningf(format, args...)
	addToBuffer(logging.WARNING, fmt.Sprintf(format, args...))
}

func Error(args ...interface{}) {
	logger.Error(args...)
	addToBuffer(logging.ERROR, fmt.Sprint(args...))
}

func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
	addToBuffer(logging.ERROR, fmt.Sprintf(format, args...))
}

func addToBuffer(level logging.Level, newLog string) {
	logBufferMu.Lock()
	defer logBufferMu.Unlock()

	if len(logBuffer) >= bufferSize {
		logBuffer = logBuffer[1:]
	}
	logBuffer = append(logBuffer, &logEntry{
		time:  time.Now(),
		level: level,
		log:   newLog,
	})
}

// GetLogs returns up to count buffered entries at or above the given level.
func GetLogs(count int, level string) []string {
	var logs []string
	logLevel, err := logging.LogLevel(level)
	if err != nil {
		logLevel = logging.DEBUG
	}

	logBufferMu.Lock()
	defer logBufferMu.Unlock()

	for i := len(logBuffer) - 1; i >= 0 && len(logs) < count; i-- {
		entry := logBuffer[i]
		if entry.level > logLevel {
			continue
		}
		logs = append(logs, fmt.Sprintf("%s %s - %s",
			entry.time.Format("2006/01/02 15:04:05"), entry.level, entry.log))
	}
	return logs
}
