// Package metrics defines the prometheus instruments shared across the
// daemon. The operational surface (scraping, dashboards, alerting) lives
// outside the core; this package only exposes the counters it reads.
package metrics

const WeatherdNamespace = "weatherd"
