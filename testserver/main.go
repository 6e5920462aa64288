// Standalone test server for poking the admission middleware by hand.
// Run: go run ./testserver/
//
//	curl -i -H 'Authorization: Bearer key-A' http://localhost:8080/api/data
//	curl -i http://localhost:8080/health
package main

import (
	"encoding/json"
	"log"
	"net/http"

	llmgate "github.com/krishna-kudari/llmgate"
	"github.com/krishna-kudari/llmgate/middleware"
)

func main() {
	limiter, err := llmgate.NewHybridSlidingWindow(
		llmgate.Quota{RPM: 5, InputTPM: 200, OutputTPM: 100})
	if err != nil {
		log.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.AdmissionLimitWithConfig(middleware.Config{
		Limiter: limiter,
		KeyFunc: middleware.KeyByBearer,
		UsageFunc: func(r *http.Request) llmgate.Usage {
			// Flat per-request pricing; enough to trip the token
			// dimensions with a handful of curls.
			return llmgate.Usage{InputTokens: 40, OutputTokens: 20}
		},
		ExcludePaths: map[string]bool{"/health": true},
	})(mux)

	log.Println("test server listening on :8080")
	log.Fatal(http.ListenAndServe(":8080", handler))
}
