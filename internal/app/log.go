package app

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SetDebugFormatter reports the caller of every log line as file:line.
func SetDebugFormatter() {
	logrus.SetReportCaller(true)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableLevelTruncation: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		},
	})
}

// SetLogLevel sets the logrus level; debug overrides logLevel.
func SetLogLevel(logLevel string, debug bool) error {
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		SetDebugFormatter()
		return nil
	}
	if logLevel == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return nil
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return errors.Wrapf(err, "parse log level %q", logLevel)
	}
	logrus.SetLevel(level)
	return nil
}
