// Package editor binds a buffer.Buffer to a shared room document and renders
// it as a Bubble Tea component.
//
// Editor is the live handle: it is safe for concurrent use, turns local
// edits into patches for the provider, and applies the provider's remote
// patches as they arrive. Model is the view over an Editor.
package editor
