// Package audio inspects and decodes RIFF/WAV uploads. The visualizer only
// needs header facts for logging and PCM samples for the local mock service;
// decoding for inference happens in the remote classifier.
package audio
