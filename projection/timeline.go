// Package projection builds merged timelines from the followed clients' stores.
// Handles ordering and the incremental window.
// Does not lock, emit events or talk to the network.
package projection

import (
	"babble/domain"
	"fmt"

	"github.com/samber/lo"
)

// Item is one publication of the merged timeline with its author.
type Item struct {
	Publication domain.Publication
	Author      *domain.Client
}

func (i Item) String() string {
	return fmt.Sprintf("    %s[%d]: %s", i.Author.Name, i.Publication.Coarse, i.Publication.Content)
}

// Merge gathers the publications of every client followed by owner whose fine
// stamp lies in (start, end], ordered by coarse stamp.
//
// Each item is inserted after every merged item whose coarse stamp is not
// greater, scanning forward from the previous insertion point of the same
// author, so ties keep discovery order (followed-set order, then store order).
func Merge(owner *domain.Client, start, end int64) []Item {
	var merged []Item
	for _, author := range owner.Followed() {
		pos := 0
		for _, pub := range author.Store.After(start) {
			if pub.Fine > end {
				break
			}
			for pos < len(merged) && merged[pos].Publication.Coarse <= pub.Coarse {
				pos++
			}
			merged = insertAt(merged, pos, Item{Publication: pub, Author: author})
			pos++
		}
	}
	return merged
}

func insertAt(items []Item, pos int, item Item) []Item {
	items = append(items, Item{})
	copy(items[pos+1:], items[pos:])
	items[pos] = item
	return items
}

// Lines renders the merged items as answer messages.
func Lines(items []Item) []string {
	return lo.Map(items, func(item Item, _ int) string {
		return item.String()
	})
}
