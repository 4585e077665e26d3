package verifier

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServeMux serves the HTML visualization at / and the search metrics
// gathered by reg at /metrics
func NewServeMux(htmlPath string, reg prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if htmlPath == "" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, htmlPath)
	})
	return mux
}

// StartSimpleServer starts a simple HTTP server for the visualization and metrics
func StartSimpleServer(port int, htmlPath string, reg prometheus.Gatherer) error {
	url := fmt.Sprintf("http://localhost:%d", port)
	fmt.Printf("\n%s\n", Colorize("🌐 Starting web server on "+url, ColorBlue))
	fmt.Printf("%s\n", Colorize("⏹️  Press Ctrl+C to stop the server", ColorYellow))
	fmt.Printf("%s\n", Colorize("🧭 Open "+url+" in your browser to view the visualization", ColorBlue))
	fmt.Printf("%s\n\n", Colorize("📈 Search metrics at "+url+"/metrics", ColorBlue))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), NewServeMux(htmlPath, reg)); err != nil {
		return fmt.Errorf("error starting server: %w", err)
	}
	return nil
}
