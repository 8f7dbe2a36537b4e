// Package feed curates the three home rails: continue watching, public
// discovery, and the viewer's own uploads. Discovery hides assets still
// carrying the placeholder poster, prefers other viewers' uploads, collapses
// duplicates by title and object path, and bounds its query so a stalled
// store cannot hang the page.
package feed
