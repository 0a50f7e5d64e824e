// Package logging provides the structured-logging boundary used by every
// long-running component in the runtime (executor pool, adapters, network
// core, admin surface). It wraps the standard log package rather than
// adopting a third-party logging library, matching the rest of the
// dependency-heavy stack's own choice to keep logging on stdlib foundations.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Logger is the structured-logging contract consumed by runtime components.
type Logger interface {
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	// WithFields returns a derived logger that attaches fields to every entry.
	WithFields(fields map[string]interface{}) Logger
}

// Config controls the wire format of log output.
type Config struct {
	JSONOutput bool
}

type stdLogger struct {
	errorLogger *log.Logger
	warnLogger  *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
	config      Config
	fields      map[string]interface{}
}

// New creates a Logger writing to stderr (error/warn) and stdout (info/debug).
func New(config Config) Logger {
	return &stdLogger{
		errorLogger: log.New(os.Stderr, "[ERROR] ", log.LstdFlags|log.Lmicroseconds),
		warnLogger:  log.New(os.Stderr, "[WARN] ", log.LstdFlags|log.Lmicroseconds),
		infoLogger:  log.New(os.Stdout, "[INFO] ", log.LstdFlags|log.Lmicroseconds),
		debugLogger: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags|log.Lmicroseconds),
		config:      config,
		fields:      map[string]interface{}{},
	}
}

// Default is the package-level logger used by components that were not
// explicitly handed one.
var Default Logger = New(Config{JSONOutput: false})

type entry struct {
	Timestamp string                 `json:"timestamp,omitempty"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *stdLogger) write(level string, dest *log.Logger, message string) {
	if l.config.JSONOutput {
		e := entry{Timestamp: time.Now().UTC().Format(time.RFC3339), Level: level, Message: message}
		if len(l.fields) > 0 {
			e.Fields = l.fields
		}
		if data, err := json.Marshal(e); err == nil {
			dest.Output(3, string(data))
			return
		}
	}
	if len(l.fields) > 0 {
		dest.Output(3, fmt.Sprintf("%s %v", message, l.fields))
		return
	}
	dest.Output(3, message)
}

func (l *stdLogger) Error(args ...interface{}) { l.write("ERROR", l.errorLogger, fmt.Sprint(args...)) }
func (l *stdLogger) Errorf(format string, args ...interface{}) {
	l.write("ERROR", l.errorLogger, fmt.Sprintf(format, args...))
}
func (l *stdLogger) Warn(args ...interface{}) { l.write("WARN", l.warnLogger, fmt.Sprint(args...)) }
func (l *stdLogger) Warnf(format string, args ...interface{}) {
	l.write("WARN", l.warnLogger, fmt.Sprintf(format, args...))
}
func (l *stdLogger) Info(args ...interface{}) { l.write("INFO", l.infoLogger, fmt.Sprint(args...)) }
func (l *stdLogger) Infof(format string, args ...interface{}) {
	l.write("INFO", l.infoLogger, fmt.Sprintf(format, args...))
}
func (l *stdLogger) Debug(args ...interface{}) {
	l.write("DEBUG", l.debugLogger, fmt.Sprint(args...))
}
func (l *stdLogger) Debugf(format string, args ...interface{}) {
	l.write("DEBUG", l.debugLogger, fmt.Sprintf(format, args...))
}

func (l *stdLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &stdLogger{
		errorLogger: l.errorLogger,
		warnLogger:  l.warnLogger,
		infoLogger:  l.infoLogger,
		debugLogger: l.debugLogger,
		config:      l.config,
		fields:      merged,
	}
}
