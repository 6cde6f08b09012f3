// Package report renders lookup results.
//
// Writers:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: {"success", "data", "error"} envelopes for tool integration
//   - MarkdownWriter: tables for documentation and sharing
//
// All writers implement Writer, so the CLI can pick one by flag and
// MultiWriter can fan a result out to several destinations.
package report
