package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

var plugins = map[string]map[string]interface{}{
	"akismet": {
		"name":            "Akismet Anti-spam: Spam Protection",
		"slug":            "akismet",
		"version":         "5.3.1",
		"rating":          94,
		"num_ratings":     1054,
		"active_installs": 6000000,
		"downloaded":      350000000,
		"last_updated":    "2024-03-21 6:58pm GMT",
		"homepage":        "https://akismet.com/",
	},
	"hello-dolly": {
		"name":            "Hello Dolly",
		"slug":            "hello-dolly",
		"version":         "1.7.2",
		"rating":          80,
		"num_ratings":     "250",
		"active_installs": 300000,
		"downloaded":      "4000000",
		"last_updated":    "2019-03-05 1:00pm GMT",
		"homepage":        "http://wordpress.org/plugins/hello-dolly/",
	},
}

// catalog mimics the plugin_information endpoint for local runs.
func catalog() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		log.Println(req.Method, req.URL)

		rw.Header().Set("Content-Type", "application/json")

		if req.URL.Query().Get("action") != "plugin_information" {
			rw.WriteHeader(http.StatusBadRequest)
			_, _ = rw.Write([]byte(`{"error": "Action not implemented."}`))
			return
		}

		plg, ok := plugins[req.URL.Query().Get("request[slug]")]
		if !ok {
			rw.WriteHeader(http.StatusNotFound)
			_, _ = rw.Write([]byte(`{"error": "Plugin not found."}`))
			return
		}

		_ = json.NewEncoder(rw).Encode(plg)
	})
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/plugins/info/1.2/", catalog())

	server := &http.Server{Addr: ":8666", Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	err := server.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}
