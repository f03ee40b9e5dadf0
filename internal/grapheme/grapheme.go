// Package grapheme wraps uniseg segmentation for the buffer and editor
// packages.
package grapheme

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Split returns the grapheme clusters of text in order.
func Split(text string) []string {
	if text == "" {
		return nil
	}
	g := uniseg.NewGraphemes(text)
	out := make([]string, 0, len(text))
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// Count returns the number of grapheme clusters in text.
func Count(text string) int {
	if text == "" {
		return 0
	}
	return uniseg.GraphemeClusterCount(text)
}

// Join concatenates clusters.
func Join(clusters []string) string {
	switch len(clusters) {
	case 0:
		return ""
	case 1:
		return clusters[0]
	}
	var sb strings.Builder
	for _, c := range clusters {
		sb.WriteString(c)
	}
	return sb.String()
}

// RuneCount returns the number of runes across clusters.
func RuneCount(clusters []string) int {
	n := 0
	for _, c := range clusters {
		n += len([]rune(c))
	}
	return n
}

// Width returns the terminal cell width of a single cluster. Tabs are the
// caller's problem and report zero.
func Width(cluster string) int {
	if cluster == "" || cluster == "\t" {
		return 0
	}
	w := runewidth.StringWidth(cluster)
	if w <= 0 {
		w = uniseg.StringWidth(cluster)
	}
	if w < 0 {
		return 0
	}
	return w
}

// Class groups clusters for word movement.
type Class uint8

const (
	ClassWord Class = iota
	ClassSpace
	ClassPunct
)

// Classify reports the class of a cluster. A cluster is space or punctuation
// only if every rune in it is.
func Classify(cluster string) Class {
	if cluster == "" {
		return ClassWord
	}
	space, punct := true, true
	for _, r := range cluster {
		if !unicode.IsSpace(r) {
			space = false
		}
		if !unicode.IsPunct(r) {
			punct = false
		}
	}
	switch {
	case space:
		return ClassSpace
	case punct:
		return ClassPunct
	default:
		return ClassWord
	}
}
