// Package dataset loads the A/B campaign dataset into an immutable Table.
//
// Sources are CSV files, XLSX workbooks and Google Sheets ranges
// (sheets://<spreadsheetID>/<A1 range>). Two header layouts are
// recognised: the long layout with one row per platform and day, and the
// wide layout with one row per day and a facebook_/adword_ column group
// per platform. Wide rows are reshaped into one record per platform.
//
// Any failure is a *LoadError matching ErrDataUnavailable.
package dataset
