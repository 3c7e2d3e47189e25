// Package formats registers the output formats of the consolidated dataset
// with the core registry. Import this package to ensure all formats are
// registered.
package formats

// Each format file uses init() to register itself.
