// Package action converts freeform reasoning text into a structured
// core.Action.
//
// The accepted mini-language is a line starting with the marker "Action:"
// followed by name(...), where the parenthesized body is empty, a single bare
// or quoted string, a JSON-like object (single or double quotes) or a keyword
// list such as x=10, y: 20.
//
// Parsing is pure and total: identical input always yields an identical
// Action and malformed syntax degrades to a raw string parameter instead of
// failing.
package action
