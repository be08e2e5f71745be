// Package logger provides the process-wide leveled logger used by modules
// that do not carry their own hclog instance.
package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Field is a single structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// Info logs an informational message. Accepts either printf-style arguments
// or a trailing []Field for structured output.
func Info(format string, args ...interface{}) {
	logf("INFO", format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	logf("WARN", format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	logf("ERROR", format, args...)
}

// Debug logs a debug message. Suppressed unless LOG_LEVEL=debug.
func Debug(format string, args ...interface{}) {
	if os.Getenv("LOG_LEVEL") != "debug" {
		return
	}
	logf("DEBUG", format, args...)
}

func logf(level, format string, args ...interface{}) {
	if len(args) > 0 {
		if fields, ok := args[len(args)-1].([]Field); ok {
			logStructured(level, format, fields...)
			return
		}
	}
	log.Printf(level+": "+format, args...)
}

func logStructured(level, msg string, fields ...Field) {
	if os.Getenv("LOG_FORMAT") == "json" {
		entry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"level":     level,
			"message":   msg,
		}
		for _, f := range fields {
			entry[f.Key] = f.Value
		}
		data, _ := json.Marshal(entry)
		log.Println(string(data))
		return
	}

	out := msg
	for _, f := range fields {
		out += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	log.Printf("%s: %s", level, out)
}

// Field constructors for common types.

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Err(key string, err error) Field {
	if err == nil {
		return Field{Key: key, Value: nil}
	}
	return Field{Key: key, Value: err.Error()}
}
