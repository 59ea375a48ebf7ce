// Package report persists the summary of an alignment pass: which strategy
// ran, which reference was the main clock, and what each stream's global
// time span looks like afterwards.
package report
