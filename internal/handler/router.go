package handler

import (
	"github.com/gorilla/mux"

	"github.com/segyhp/loan-ledger/internal/identity"
	"github.com/segyhp/loan-ledger/pkg/response"
)

func NewRouter(ledgerHandler *LedgerHandler, healthHandler *HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware, response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(identity.HeaderMiddleware)
	ledgerHandler.Register(api)

	return router
}
