package services

import (
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/platform/config"
)

// NewServiceContainer wires the ledger facade from configuration.
func NewServiceContainer(cfg *config.Config, store portsrepo.Store, observer OperationObserver) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		Ledger: NewLedgerService(store,
			WithRetry(RetryConfig{
				MaxAttempts:     cfg.RetryMaxAttempts,
				InitialInterval: cfg.RetryInitialInterval,
				MaxInterval:     cfg.RetryMaxInterval,
			}),
			WithOperationTimeout(cfg.OperationTimeout),
			WithObserver(observer),
		),
	}
}
