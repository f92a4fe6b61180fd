package services

// ServiceContainer holds instances of all the application services.
// It is the entry point handlers and the CLI use to reach the ledger.
type ServiceContainer struct {
	Ledger LedgerSvcFacade
}
