// Package report renders analyses and analysis history.
//
// Writers for three formats implement the Writer interface:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown with alerts and mermaid charts
//
// Writers can be combined with MultiWriter to print to the terminal and a
// file at the same time.
package report
