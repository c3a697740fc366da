// Package shared holds code used by several packages that belongs to none
// of them. Today that is only testutil: log capture and campaign fixtures
// for package tests. Nothing here may import a domain package other than
// pkg/contracts.
package shared
