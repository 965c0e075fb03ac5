// Package nlu provides a keyword and pattern based classifier for Spanish and
// English bookstore chat. It is the default ports.Classifier; a model-backed
// classifier can replace it without touching the engine.
package nlu
