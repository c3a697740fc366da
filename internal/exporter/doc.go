// Package exporter writes aggregated dashboard views as CSV or XLSX.
//
// CSV exports carry one table (summary, timeseries, records or insights)
// with a UTF-8 BOM for Excel. XLSX exports are a workbook with one sheet
// per table. Undefined ratios are written as empty cells.
package exporter
