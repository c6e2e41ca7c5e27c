//go:build !windows

// Package service provides a stub implementation for non-Windows platforms.
// On macOS and Linux the monitor runs as a foreground process; the Windows
// service wrapper is not needed.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MonitorService is a no-op service wrapper for non-Windows platforms.
type MonitorService struct {
	logger *zap.Logger
	runFn  func(ctx context.Context)
}

// New creates a stub service wrapper for non-Windows platforms.
func New(logger *zap.Logger, _ time.Duration, runFn func(ctx context.Context)) *MonitorService {
	return &MonitorService{
		logger: logger,
		runFn:  runFn,
	}
}

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool {
	return false
}

// Run executes the monitor directly (no service wrapper needed on non-Windows).
func (s *MonitorService) Run() error {
	s.runFn(context.Background())
	return nil
}
