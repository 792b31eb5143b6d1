// Package servicemanager runs a set of services together: it initialises them
// in order, starts them concurrently and stops them in reverse order when one
// fails or the process is asked to shut down.
package servicemanager

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/ulogger"
	"github.com/peercoin/warnd/util/health"
	"golang.org/x/sync/errgroup"
)

const stopTimeout = 5 * time.Second

// Service is the lifecycle every long running component implements.
type Service interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type serviceWrapper struct {
	name     string
	instance Service
}

type ServiceManager struct {
	services   []serviceWrapper
	logger     ulogger.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewServiceManager returns a manager whose context is derived from ctx.
func NewServiceManager(ctx context.Context, logger ulogger.Logger) *ServiceManager {
	ctx, cancelFunc := context.WithCancel(ctx)

	return &ServiceManager{
		logger:     logger,
		ctx:        ctx,
		cancelFunc: cancelFunc,
	}
}

func (sm *ServiceManager) AddService(name string, service Service) {
	sm.services = append(sm.services, serviceWrapper{
		name:     name,
		instance: service,
	})
}

// Context is cancelled when the manager shuts down.
func (sm *ServiceManager) Context() context.Context {
	return sm.ctx
}

// HandleSignals cancels the manager on SIGINT or SIGTERM.
func (sm *ServiceManager) HandleSignals() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		select {
		case sig := <-sigs:
			sm.logger.Infof("🟠 Received %s. Stopping services...", sig)
			sm.cancelFunc()
		case <-sm.ctx.Done():
		}
	}()
}

func (sm *ServiceManager) Shutdown() {
	sm.cancelFunc()
}

// StartAllAndWait initialises every service in the order added, starts them
// all and blocks until one of them returns an error or the context is
// cancelled. Services are then stopped in reverse order. Cancellation is a
// clean shutdown and returns nil.
func (sm *ServiceManager) StartAllAndWait() error {
	defer sm.cancelFunc()

	for _, service := range sm.services {
		if err := sm.ctx.Err(); err != nil {
			return nil
		}

		sm.logger.Infof("⚪️ Initializing service %s...", service.name)

		if err := service.instance.Init(sm.ctx); err != nil {
			return errors.NewServiceError("failed to initialize %s", service.name, err)
		}
	}

	g, ctx := errgroup.WithContext(sm.ctx)

	for _, service := range sm.services {
		s := service

		sm.logger.Infof("🟢 Starting service %s...", s.name)

		g.Go(func() error {
			if err := s.instance.Start(ctx); err != nil {
				sm.logger.Errorf("Error from service start %s: %v", s.name, err)
				return err
			}

			return nil
		})
	}

	// a service returning nil early is not a reason to bring the others down
	<-ctx.Done()

	err := g.Wait()
	if err != nil {
		sm.logger.Errorf("Received error: %v", err)
	}

	sm.stopAll()

	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (sm *ServiceManager) stopAll() {
	for i := len(sm.services) - 1; i >= 0; i-- {
		service := sm.services[i]

		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)

		sm.logger.Infof("🟠 Stopping service %s...", service.name)

		if err := service.instance.Stop(stopCtx); err != nil {
			sm.logger.Warnf("[%s] Failed to stop service: %v", service.name, err)
		} else {
			sm.logger.Infof("[%s] Service stopped gracefully", service.name)
		}

		stopCancel()
	}

	sm.logger.Infof("🛑 All services stopped.")
}

// HealthHandler aggregates the health of every service.
func (sm *ServiceManager) HealthHandler(ctx context.Context, checkLiveness bool) (int, string, error) {
	checks := make([]health.Check, 0, len(sm.services))

	for _, service := range sm.services {
		checks = append(checks, health.Check{
			Name:  service.name,
			Check: service.instance.Health,
		})
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}
