package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Redirects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redirect_requests_total",
		Help: "Total successful redirects.",
	})
	RedirectMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redirect_not_found_total",
		Help: "Redirect requests for unknown codes.",
	})
	Creates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "create_requests_total",
		Help: "Total links created.",
	})
	CreateConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "create_conflicts_total",
		Help: "Create requests rejected because the code was taken.",
	})
	StoreErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_errors_total",
		Help: "Operations that failed at the store layer.",
	})
)

func init() {
	prometheus.MustRegister(Redirects, RedirectMisses, Creates, CreateConflicts, StoreErrors)
}

func Handler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
