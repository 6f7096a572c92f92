// Package spatial builds boundary unions from administrative polygons and
// filters the stop set by containment within them.
package spatial
