// Package http implements the HTTP surface of the dashboard: the HTML
// page, go-echarts chart pages, the JSON data API, file exports, health
// probes, the Prometheus endpoint and the websocket upgrade.
//
// Handlers stay thin. They parse the query into a domain.Filter, call
// the dashboard service and render the result; every failure goes
// through the shared ErrorHandler so API clients always receive RFC 7807
// problem details.
//
// # Caching
//
// Data API responses carry an ETag of the form
//
//	"<dataset fingerprint>-<query hash>"
//
// and a matching If-None-Match answers 304. A dataset reload changes the
// fingerprint and therefore every tag.
package http
