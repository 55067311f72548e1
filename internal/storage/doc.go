// Package storage is the gateway between the local encoding workspace and the
// object-storage namespace holding episode sources and HLS packages.
package storage
