// Package server exposes the visualizer over HTTP: the inference proxy, the
// analyze endpoint returning a composed view, viewer sessions, the colour
// legend and the operational endpoints (/health, /stats, /metrics).
package server
