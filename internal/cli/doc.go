// Package cli wires configuration, the samplers and their consumers into the
// lesys command tree.
package cli
