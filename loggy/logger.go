package loggy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ECHO bool = false
var SILENT bool = false
var LogFolder string = ""
var Level logrus.Level = logrus.InfoLevel

type Logger struct {
	entry *logrus.Entry
	file  *os.File
	id    int
	app   string
}

var loggers map[int]*Logger
var app string = "pascalfs"
var mu sync.Mutex

// Get returns the logger for id, creating it on first use.
func Get(id int) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if loggers == nil {
		loggers = make(map[int]*Logger)
	}
	l, ok := loggers[id]
	if !ok {
		l = NewLogger(id, app)
		loggers[id] = l
	}
	return l
}

// Reset drops all cached loggers, closing their files.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = nil
}

func NewLogger(id int, app string) *Logger {

	if app == "" {
		app = "pascalfs"
	}

	var outputs []io.Writer
	var logFile *os.File

	if LogFolder != "" {
		filename := fmt.Sprintf("%s_%d_%s.log", app, id, fts())
		if err := os.MkdirAll(LogFolder, 0755); err == nil {
			logFile, _ = os.Create(filepath.Join(LogFolder, filename))
		}
		if logFile != nil {
			outputs = append(outputs, logFile)
		}
	}
	if ECHO {
		outputs = append(outputs, os.Stderr)
	}

	base := logrus.New()
	base.SetLevel(Level)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	switch {
	case SILENT || len(outputs) == 0:
		base.SetOutput(io.Discard)
	case len(outputs) == 1:
		base.SetOutput(outputs[0])
	default:
		base.SetOutput(io.MultiWriter(outputs...))
	}

	return &Logger{
		entry: base.WithFields(logrus.Fields{"app": app, "vol": id}),
		file:  logFile,
		id:    id,
		app:   app,
	}
}

// NewWithOutput builds a logger writing to w, mostly for tests.
func NewWithOutput(id int, w io.Writer, level logrus.Level) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &Logger{entry: base.WithField("vol", id), id: id, app: app}
}

func fts() string {
	return time.Now().Format("20060102150405")
}

// With returns a logger carrying an extra field.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), file: l.file, id: l.id, app: l.app}
}

func (l *Logger) Logf(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

func (l *Logger) Log(v ...interface{}) {
	l.entry.Infoln(v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.entry.Errorln(v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

func (l *Logger) Debug(v ...interface{}) {
	l.entry.Debugln(v...)
}
