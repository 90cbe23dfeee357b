// Package diagnostic provides structured notices produced while merging
// two tables.
//
// Notices never abort a run. They accumulate in emission order and are
// reported separately from the merged output, usually to the log stream.
//
// Key notices:
//   - Primary rows with no secondary match
//   - Secondary rows whose key never appears in the primary table
//   - Overlay entries skipped on malformed secondary rows
package diagnostic
