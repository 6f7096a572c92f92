// Package stops loads the authoritative public transport stops table used
// for fetch planning, normalizer enrichment and spatial filter candidates.
package stops
