package common

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "liyu1981.xyz/smart-farm-service/pkg/testing"
)

func TestLoggingCapture(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	logger := GetLogger()
	logger.Info("Test log message", zap.String("key", "value"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Test log message") {
		t.Errorf("expected log output to contain message, got: %s", logOutput)
	}
}

func TestLoggingCaptureNamed(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.WarnLevel)

	logger := GetLoggerWith(LoggerNameFarmCore, zap.String(LoggerFieldCategory, LoggerCategoryIrrigation))
	logger.Info("dropped below level")
	logger.Warn("sweep item failed")

	logOutput := buf.String()
	if strings.Contains(logOutput, "dropped below level") {
		t.Errorf("info line should be filtered at warn level, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, `"logger":"farm_core"`) || !strings.Contains(logOutput, `"category":"irrigation"`) {
		t.Errorf("expected named logger with category, got: %s", logOutput)
	}
}

func TestLoggerSwapWhileLogging(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				GetLoggerWith(LoggerNameFarmCore, zap.String(LoggerFieldCategory, LoggerCategoryIrrigation)).Info("tick")
				GetLogger().Debug("tock")
			}
		}()
	}

	for range 50 {
		SetTestLoggerNop()
		SetTestCaptureLogger(&buf, zapcore.InfoLevel)
	}
	wg.Wait()

	SetTestLoggerNop()
	GetLogger().Info("discarded")
}
