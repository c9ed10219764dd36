package controllers

import (
	"net/http"

	"github.com/ykarpenko/solvebot-backend/api/responses"
	"github.com/ykarpenko/solvebot-backend/pkg/config"
)

type planListResponse struct {
	Currency string        `json:"currency"`
	Plans    []config.Plan `json:"plans"`
}

// Plans returns the static premium plan catalog in display order.
func Plans(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, planListResponse{
			Currency: cfg.Plans.Currency,
			Plans:    cfg.Plans.Catalog(),
		})
	}
}
