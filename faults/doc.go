// Package faults is the shared fault-handling layer for the pipeline.
//
// Every stage routes caught errors through a Handler, which classifies them
// into a (category, level) pair, records them in a bounded rolling history,
// notifies alert channels according to level, and optionally attempts a
// per-category recovery strategy. Classification is keyword-based over the
// error text, in the spirit of triaging upstream tool output rather than
// relying on typed errors we do not control.
//
// Levels order from most to least severe: Fatal, Error, Warn, Info. A Fatal
// record always reaches the alert path, even when recovery runs.
package faults
