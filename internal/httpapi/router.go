package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
	"github.com/sljivkov/ofz-bond-oracle/internal/pricing"
)

// NewRouter builds the chi route table of spec.md §4.7.
func NewRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/health", svc.handleHealth)
	r.Get("/api/prices", svc.handlePrices)
	r.Get("/api/prices/{secid}", svc.handlePriceOne)
	r.Get("/api/bonds", svc.handleBonds)
	r.Get("/api/details", svc.handleDetailsList)
	r.Get("/api/details/{secid}", svc.handleDetailsOne)

	return r
}

func wantsSignatures(r *http.Request) bool {
	v := r.URL.Query().Get("sign")
	return v == "1" || v == "true"
}

func wantsOnchain(r *http.Request) bool {
	v := r.URL.Query().Get("onchain")
	return v == "1" || v == "true"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now().Unix(),
		"signer_address": s.SignerAddress(),
		"cache_ttl":      s.cacheTTLSeconds,
	})
}

func (s *Service) handlePrices(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	sign := wantsSignatures(r)
	prices := make(map[string]oracle.PriceEntry, len(snap.Prices))
	for secid, entry := range snap.Prices {
		if !sign {
			entry = entry.WithoutSignature()
		}
		prices[secid] = entry
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": snap.Timestamp,
		"prices":    prices,
	})
}

func (s *Service) handlePriceOne(w http.ResponseWriter, r *http.Request) {
	secid := chi.URLParam(r, "secid")

	snap, err := s.snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	entry, ok := snap.Prices[secid]
	if !ok {
		writeError(w, http.StatusNotFound, errNoPrice(secid))
		return
	}
	if !wantsSignatures(r) {
		entry = entry.WithoutSignature()
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Service) handleBonds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instruments, err := s.exchange.ListInstruments(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	filtered := instruments
	if wantsOnchain(r) {
		registered, rErr := s.registeredBonds.Get(ctx)
		if rErr != nil {
			writeError(w, http.StatusInternalServerError, rErr)
			return
		}
		filtered = make([]oracle.Instrument, 0, len(instruments))
		for _, inst := range instruments {
			if _, ok := registered[inst.SECID]; ok {
				filtered = append(filtered, inst)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bonds":               filtered,
		"count":               len(filtered),
		"filtered_by_onchain": wantsOnchain(r),
	})
}

func (s *Service) handleDetailsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instruments, err := s.exchange.ListInstruments(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if wantsOnchain(r) {
		registered, rErr := s.registeredBonds.Get(ctx)
		if rErr != nil {
			writeError(w, http.StatusInternalServerError, rErr)
			return
		}
		filtered := instruments[:0]
		for _, inst := range instruments {
			if _, ok := registered[inst.SECID]; ok {
				filtered = append(filtered, inst)
			}
		}
		instruments = filtered
	}

	out := make(map[string]oracle.BondDetails, len(instruments))
	for _, inst := range instruments {
		details, err := s.bondDetails(ctx, inst.SECID)
		if err != nil {
			s.logger.Error().Err(err).Str("secid", inst.SECID).Msg("❌ bond details failed")
			continue
		}
		out[inst.SECID] = details
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"details": out, "count": len(out)})
}

func (s *Service) handleDetailsOne(w http.ResponseWriter, r *http.Request) {
	secid := chi.URLParam(r, "secid")
	details, err := s.bondDetails(r.Context(), secid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if details.MaturityAt == nil {
		writeError(w, http.StatusNotFound, errNoPrice(secid))
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Service) bondDetails(ctx context.Context, secid string) (oracle.BondDetails, error) {
	desc, err := s.exchange.Description(ctx, secid)
	if err != nil {
		return oracle.BondDetails{}, err
	}
	details := pricing.BuildBondDetails(desc)
	if err := pricing.ApplyScaling(&details, s.scalingFactor); err != nil {
		return oracle.BondDetails{}, err
	}
	return details, nil
}

type notFoundError struct{ secid string }

func (e *notFoundError) Error() string { return "no price for " + e.secid }

func errNoPrice(secid string) error { return &notFoundError{secid: secid} }
