// Package services holds the business layer between the HTTP transport and
// the dataset.
//
// DashboardService owns the served dataset snapshot. Reads go through an
// atomic pointer to an immutable dataset.Table, so every request sees one
// consistent snapshot and never blocks on a reload. Reloads are coalesced
// with singleflight; a failed reload keeps the previous snapshot serving and
// is reported through LastError and the readiness check.
//
// HealthService answers liveness, readiness and version probes.
package services
