package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_export_downloads_total",
		Help: "Export download attempts by result.",
	}, []string{"result"})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timetable_export_download_bytes_total",
		Help: "Bytes streamed to clients from the exports directory.",
	})

	exportsPurgedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_exports_purged_total",
		Help: "Export files deleted, by trigger (access, sweep, downloaded).",
	}, []string{"trigger"})

	scopeCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_scope_cache_lookups_total",
		Help: "Scoping id cache lookups by outcome.",
	}, []string{"outcome"})
)
