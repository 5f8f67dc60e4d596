// Package build runs the formulary pipeline.
//
// A full build extracts records from the source tree, writes them to the data
// file, reads the data file back through schema validation, renders the site
// and checks its internal links. Parse and Render run the first and second
// halves on their own so either can be repeated without the other.
package build
