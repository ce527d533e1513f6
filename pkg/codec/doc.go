// Package codec converts between engine terms and native Go values.
package codec
