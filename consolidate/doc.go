// Package consolidate dissolves normalized isochrones into one coverage
// polygon per (travel mode, time tier) group.
package consolidate
