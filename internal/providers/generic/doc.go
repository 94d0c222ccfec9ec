// Package generic implements a providers.Scraper that works on general
// HTML-based web-novel sites. It locates a table of contents and extracts
// chapter text using DOM-first analysis with fallback heuristics; named
// sites reuse the same engine through selector profiles.
package generic
