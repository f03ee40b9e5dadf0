// Package buffer implements the grapheme-accurate plain text document that a
// collaborative editor replica keeps locally.
//
// Coordinates are 0-based (Row, GraphemeCol). Ranges are half-open: [Start, End).
// Wire-level positions are rune offsets with newline counted as one rune.
package buffer
