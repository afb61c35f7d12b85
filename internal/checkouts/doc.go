// Package checkouts lists the checkouts a scope selects, optionally with their branch and working tree state.
package checkouts
