// Package tree provides the concrete UI hierarchy that emissions bubble
// through.
//
// A hierarchy starts at a node created with NewRoot. Nodes are added with
// NewChild or Append and detached with Remove; a detached subtree keeps its
// internal structure but no longer reaches the root, so the event bus
// delivers nothing for emissions raised inside it.
//
// Nodes are addressed by slash-separated paths of names ("body/main/grid").
// Find resolves a plain path; Match accepts "*" and "**" wildcards.
package tree
