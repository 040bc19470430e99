// Package logger provides structured JSON logging shared by all services.
package logger

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"
)

type Logger interface {
	Info(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Debug(message string, fields map[string]interface{})
	Fatal(message string, fields map[string]interface{})
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var levelNames = map[level]string{
	levelDebug: "debug",
	levelInfo:  "info",
	levelWarn:  "warn",
	levelError: "error",
	levelFatal: "fatal",
}

func parseLevel(s string) level {
	switch strings.ToLower(s) {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

type jsonLogger struct {
	service string
	min     level
	out     *log.Logger
}

// New builds a JSON logger for the named service. The minimum level comes
// from LOG_LEVEL (debug, info, warn, error); anything below it is dropped.
func New(serviceName string) Logger {
	return &jsonLogger{
		service: serviceName,
		min:     parseLevel(os.Getenv("LOG_LEVEL")),
		out:     log.New(os.Stdout, "", 0),
	}
}

func (l *jsonLogger) write(lv level, message string, fields map[string]interface{}) {
	if lv < l.min {
		return
	}

	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = levelNames[lv]
	entry["service"] = l.service
	entry["message"] = message

	line, err := json.Marshal(entry)
	if err != nil {
		l.out.Printf(`{"level":"error","service":%q,"message":"unserializable log entry: %s"}`, l.service, message)
		return
	}
	l.out.Println(string(line))
}

func (l *jsonLogger) Debug(message string, fields map[string]interface{}) {
	l.write(levelDebug, message, fields)
}

func (l *jsonLogger) Info(message string, fields map[string]interface{}) {
	l.write(levelInfo, message, fields)
}

func (l *jsonLogger) Warn(message string, fields map[string]interface{}) {
	l.write(levelWarn, message, fields)
}

func (l *jsonLogger) Error(message string, fields map[string]interface{}) {
	l.write(levelError, message, fields)
}

func (l *jsonLogger) Fatal(message string, fields map[string]interface{}) {
	l.write(levelFatal, message, fields)
	os.Exit(1)
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(message string, fields map[string]interface{})  {}
func (nopLogger) Error(message string, fields map[string]interface{}) {}
func (nopLogger) Warn(message string, fields map[string]interface{})  {}
func (nopLogger) Debug(message string, fields map[string]interface{}) {}
func (nopLogger) Fatal(message string, fields map[string]interface{}) {}
