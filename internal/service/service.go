//go:build windows

// Package service provides Windows Service integration.
// When running as a Windows service, the monitor enters the SCM control loop.
// When running from a terminal, it runs in foreground.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
)

const serviceName = "Resmon"

// MonitorService implements the Windows service interface (svc.Handler).
type MonitorService struct {
	logger   *zap.Logger
	runFn    func(ctx context.Context)
	stopWait time.Duration
}

// New creates a new Windows service wrapper. runFn is called with a context
// that is cancelled when the SCM asks the service to stop; the service
// waits up to stopWait for runFn to return.
func New(logger *zap.Logger, stopWait time.Duration, runFn func(ctx context.Context)) *MonitorService {
	return &MonitorService{
		logger:   logger,
		runFn:    runFn,
		stopWait: stopWait,
	}
}

// IsWindowsService checks if the process is running as a Windows service.
func IsWindowsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Run starts the Windows service control loop.
func (s *MonitorService) Run() error {
	return svc.Run(serviceName, s)
}

// Execute implements the svc.Handler interface for Windows SCM integration.
// It manages the service lifecycle: start, running, stop/shutdown.
func (s *MonitorService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runFn(ctx)
	}()

	changes <- svc.Status{
		State:   svc.Running,
		Accepts: svc.AcceptStop | svc.AcceptShutdown,
	}
	s.logger.Info("Windows service started")

	for {
		select {
		case <-done:
			s.logger.Warn("Monitor exited while service running")
			return false, 1
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				s.logger.Info("Windows service stopping")
				changes <- svc.Status{State: svc.StopPending, WaitHint: uint32(s.stopWait / time.Millisecond)}
				cancel()
				select {
				case <-done:
				case <-time.After(s.stopWait):
					s.logger.Warn("Monitor did not stop in time")
				}
				return false, 0
			default:
				s.logger.Warn("Unexpected service control request",
					zap.Uint32("cmd", uint32(c.Cmd)))
			}
		}
	}
}

// Install provides instructions for installing the service.
// In production, use golang.org/x/sys/windows/svc/mgr for programmatic installation.
func Install(exePath string) error {
	return fmt.Errorf("use 'sc create %s binPath= \"%s run\"' to install", serviceName, exePath)
}
