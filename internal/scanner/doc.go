// Package scanner tokenizes source files and extracts their top-level
// declarations into the normalized model.
//
// The scanner is deliberately not a full parser. It lexes the file once,
// consuming comments, string/char literals, and attributes so no delimiter
// hiding inside them can confuse structure tracking, and then walks the
// token stream recognizing fn, struct, enum, and impl items. Methods inside
// impl blocks are flattened to plain function declarations with their
// receivers dropped. Generic parameter lists and where clauses are skipped:
// generics never participate in matching.
//
// A file the scanner cannot make sense of (unbalanced delimiters, truncated
// declarations, unterminated literals) yields a *ScanError. Callers treat
// that as local to the file: the file is dropped from the corpus and the run
// continues.
package scanner
