// Package idgen generates sortable identifiers: snowflake ids for persisted
// rows and ULIDs for transport-assigned serials.
package idgen

// Generator produces unique string identifiers.
type Generator interface {
	Generate() (string, error)
}
