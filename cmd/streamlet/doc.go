// Command streamlet publishes media into a shared library and browses it:
// two-phase upload with poster derivation, watch-progress tracking, the home
// feed rails, and channel posts.
package main
