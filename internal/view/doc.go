// Package view assembles the display model for one inference response:
// the top predictions, the spectrogram and waveform cards, one card per main
// layer with its internals, the colour legend and any diagnostics.
//
// A Layout fixes which tensors are rendered and in what order. The caller
// renders Layout.Tensors() with a single scale and hands the batch back to
// Compose, so every grid in a View shares one colour mapping.
package view
