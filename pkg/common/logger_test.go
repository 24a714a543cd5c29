package common

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/alexsears/tentOS/pkg/testing"
)

func TestLoggingCapture(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	GetLogger().Info("Test log message", zap.String("key", "value"))

	assert.Contains(t, buf.String(), "Test log message")
	assert.Contains(t, buf.String(), `"key":"value"`)
}

func TestGetLoggerWithCategory(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	logger := GetLoggerWith(LoggerNameStateManager, zap.String(LoggerFieldCategory, LoggerCategoryEvent))
	logger.Debug("dropped below level")
	logger.Info("routed")

	out := buf.String()
	assert.Contains(t, out, `"logger":"state_manager"`)
	assert.Contains(t, out, `"category":"event"`)
	assert.NotContains(t, out, "dropped below level")
}

func TestLoggerSwapWhileLogging(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				GetLoggerWith(LoggerNameAutomation).Info("tick")
			}
		}()
	}
	SetTestLoggerNop()
	wg.Wait()

	GetLoggerWith(LoggerNameAutomation).Info("after swap")
	assert.NotContains(t, buf.String(), "after swap")
}
