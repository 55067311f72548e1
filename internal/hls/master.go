package hls

import (
	"fmt"
	"strings"
	"sync"
)

const masterHeader = "#EXTM3U\n#EXT-X-VERSION:7\n"

// MasterBuilder assembles the master playlist from a fixed-size slot array
// indexed by ladder position. Encoder goroutines complete in arbitrary order;
// each writes only its own slot, and the final playlist lists variants in
// planning order regardless of completion order.
type MasterBuilder struct {
	mu    sync.Mutex
	slots []string
}

// NewMasterBuilder creates a builder with one slot per planned rendition.
func NewMasterBuilder(renditions int) *MasterBuilder {
	return &MasterBuilder{slots: make([]string, renditions)}
}

// SetVariant records a completed rendition in its ladder slot.
func (b *MasterBuilder) SetVariant(index, height, bitrateKbps int) {
	if index < 0 || index >= len(b.slots) {
		return
	}
	entry := fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dp\n%s\n",
		bitrateKbps*1000, height, VariantPlaylistName(height))
	b.mu.Lock()
	b.slots[index] = entry
	b.mu.Unlock()
}

// Complete reports how many slots have been filled.
func (b *MasterBuilder) Complete() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, slot := range b.slots {
		if slot != "" {
			count++
		}
	}
	return count
}

// String joins the non-empty slots in ladder order under the playlist header.
func (b *MasterBuilder) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	sb.WriteString(masterHeader)
	for _, slot := range b.slots {
		sb.WriteString(slot)
	}
	return sb.String()
}
