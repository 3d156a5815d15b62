// Package report renders search results, pack problems, and boot history
// for people. History is also written as YAML for later inspection.
package report
