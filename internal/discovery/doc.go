// Package discovery scans a directory tree for module descriptors and git working trees.
package discovery
