// Package fetch is the resilient HTTP client for the external isochrone API.
package fetch
