package platform

import (
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/engine"
	"github.com/segyhp/loan-ledger/internal/identity"
	"github.com/segyhp/loan-ledger/internal/service"
)

// NewLedger wires a LedgerService over the backend's stores.
func NewLedger(cfg *config.Config, backend *Backend, provider identity.Provider) *service.LedgerService {
	clock := service.SystemClock

	var rail service.PaymentRail = service.NoopRail{}
	if cfg.Business.PaymentRail == config.RailProfile {
		rail = service.NewProfileRail(backend.Stores.Profiles, backend.Stores.Transfers, clock)
	}

	svc := service.NewLedgerService(backend.Stores, engine.New(cfg.Business.RateBasis), rail, provider, clock)
	svc.StrictRegistration = cfg.Business.StrictRegistration
	return svc
}
