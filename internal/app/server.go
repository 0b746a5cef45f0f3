package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/metrics"
	"github.com/bobmcallan/armory/internal/models"
	armsync "github.com/bobmcallan/armory/internal/services/sync"
	"github.com/bobmcallan/armory/internal/storage"
)

// syncAPI is the part of the batch driver exposed over HTTP.
type syncAPI interface {
	Instances(ctx context.Context) ([]models.ExpansionInstances, error)
	ForceUpdate(ctx context.Context, userID int64) (*armsync.Report, error)
	FetchCharacters(ctx context.Context, userID int64, region string, namespaces []string) ([]models.CharacterIdentity, error)
}

// NewServer builds the HTTP server for serve mode.
func (a *App) NewServer() *http.Server {
	return &http.Server{
		Addr:         a.Config.Server.Host + ":" + strconv.Itoa(a.Config.Server.Port),
		Handler:      BuildMux(a.Sync, a.Storage.CharacterStore(), a.Logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// BuildMux creates the HTTP mux with health, metrics and REST endpoints.
func BuildMux(svc syncAPI, characters interfaces.CharacterStore, logger *common.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", healthHandler)
	mux.HandleFunc("GET /api/version", versionHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/instances", handleInstances(svc, logger))
	mux.HandleFunc("GET /api/users/{id}/characters", handleUserCharacters(characters, logger))
	mux.HandleFunc("GET /api/users/{id}/account", handleAccountCharacters(svc, logger))
	mux.HandleFunc("POST /api/users/{id}/update", handleForceUpdate(svc, logger))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

func handleInstances(svc syncAPI, logger *common.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := svc.Instances(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

func handleUserCharacters(characters interfaces.CharacterStore, logger *common.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}
		list, err := characters.ListCharactersByUser(r.Context(), userID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if list == nil {
			list = []*models.EnrichedCharacter{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// handleAccountCharacters lists the account's characters straight from
// Battle.net. Namespaces come from a comma separated query parameter.
func handleAccountCharacters(svc syncAPI, logger *common.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}
		var namespaces []string
		if ns := r.URL.Query().Get("namespaces"); ns != "" {
			namespaces = strings.Split(ns, ",")
		}
		list, err := svc.FetchCharacters(r.Context(), userID, r.URL.Query().Get("region"), namespaces)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleForceUpdate(svc syncAPI, logger *common.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}
		report, err := svc.ForceUpdate(r.Context(), userID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, logger *common.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, armsync.ErrCooldown):
		status = http.StatusTooManyRequests
	case errors.Is(err, armsync.ErrNoCharacters), errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
