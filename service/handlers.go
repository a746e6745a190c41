package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kava-labs/composer-proxy-service/clients/cache"
)

// createHealthcheckHandler creates a health check handler function that
// will respond 200 ok if the proxy service is able to connect to
// it's dependencies and functioning as expected
func createHealthcheckHandler(service *ProxyService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var combinedErrors error

		service.Debug().Msg("/healthcheck called")

		// check that the database is reachable
		if err := service.Database.HealthCheck(); err != nil {
			service.Logger.Error().
				Err(err).
				Msg("database healthcheck failed")

			combinedErrors = errors.Join(combinedErrors, fmt.Errorf("composer service unable to connect to database: %v", err))
		}

		if service.Cache.IsCacheEnabled() {
			// check that the cache is reachable
			if err := service.Cache.Healthcheck(r.Context()); err != nil {
				service.Logger.Error().
					Err(err).
					Msg("cache healthcheck failed")

				combinedErrors = errors.Join(combinedErrors, fmt.Errorf("composer service unable to connect to cache: %v", err))
			}
		}

		if combinedErrors != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(combinedErrors.Error()))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("composer service is healthy"))
	}
}

// createServicecheckHandler creates a service check handler function that
// will respond 200 ok if the proxy service is running
func createServicecheckHandler(service *ProxyService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		service.Debug().Msg("/servicecheck called")

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("composer service is in service"))
	}
}

// createCacheStatusHandler creates a handler reporting how backend
// responses are being cached
func createCacheStatusHandler(service *ProxyService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		service.Debug().Msg("/status/cache called")

		response := CacheStatusResponse{
			Enabled: service.Cache.IsCacheEnabled(),
			Backend: service.cacheBackend,
			Routes:  service.routes.Len(),
		}
		if sizer, ok := service.Cache.Store().(cache.Sizer); ok && response.Enabled {
			entries := sizer.Len()
			response.Entries = &entries
		}

		if err := MarshalJSONResponse(&response, w); err != nil {
			service.Error().Msg(fmt.Sprintf("error %s encoding %+v to json", err, response))
		}
	}
}

// MarshalJSONResponse marshals an interface into the response body and sets JSON content type headers
func MarshalJSONResponse(obj interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		return err
	}
	return nil
}
