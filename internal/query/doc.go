// Package query searches and lists container trees without loading them
// in full.
//
// The Find functions walk the tree depth-first in pre-order, children in
// creation order, and load the first match. The root group itself is not
// a candidate. A node matches when its path relative to the root matches;
// otherwise its first non-reserved attribute whose key matches is used.
package query
