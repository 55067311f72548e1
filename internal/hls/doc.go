// Package hls defines the object key layout of an episode's streaming package
// and assembles the master playlist.
package hls
