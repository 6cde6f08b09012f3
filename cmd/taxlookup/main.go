// Package main provides the entry point for the taxlookup CLI.
//
// taxlookup looks up Vietnamese companies by tax code or name on the
// public business registry and prints the company record.
//
// Usage:
//
//	taxlookup lookup 0101234567
//	taxlookup lookup --json "Công ty Sao Việt" 0312345678
//
// See --help for all available options.
package main

// main is the entry point for taxlookup.
func main() {
	Execute()
}
