// Package report renders sweep results as a plain-text table, CSV or JSON.
//
// Latencies are written in milliseconds. Output carries no styling.
package report
