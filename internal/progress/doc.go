// Package progress tracks per-viewer playback positions. Steady playback
// writes are throttled through a Session; pause, stop, and end-of-media
// events flush immediately so the latest position is never lost.
package progress
