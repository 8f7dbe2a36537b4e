// Package poster derives JPEG poster frames from media files via ffprobe and
// ffmpeg. Derivation is best effort: a failed probe, a corrupt file, or a
// slow tool never blocks publishing, the caller substitutes a placeholder.
package poster
