package logger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogsFiltersByLevel(t *testing.T) {
	Info("info line")
	Debug("debug line")

	logs := GetLogs(10, "info")
	for _, line := range logs {
		assert.NotContains(t, line, "debug line")
	}
}

func TestConcurrentLoggingAndReading(t *testing.T) {
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				Info("writer ", w, " line ", i)
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				GetLogs(50, "debug")
			}
		}()
	}
	wg.Wait()

	logs := GetLogs(10, "debug")
	assert.NotEmpty(t, logs)
}

func TestBufferIsBounded(t *testing.T) {
	for i := 0; i < bufferSize+100; i++ {
		Info(fmt.Sprintf("fill %d", i))
	}

	logBufferMu.Lock()
	size := len(logBuffer)
	logBufferMu.Unlock()
	assert.LessOrEqual(t, size, bufferSize)
}
