// Package checkout models a single git working tree for canopy.
//
// It offers the Checkout interface consumed by the workspace model and the
// branch cleanup engine, GitCheckout backed by go-git for reads and the git
// executable for mutations, the Branch, Branches and Heads records, and the
// Locator that maps filesystem paths onto enclosing working trees.
package checkout
