// Package tools holds the household-plant capabilities the planner can invoke.
package tools

import (
	"github.com/mohammad-safakhou/carie/internal/capability"
	"github.com/mohammad-safakhou/carie/internal/plants"
	"github.com/mohammad-safakhou/carie/tools/web_search"
)

var (
	_ capability.Capability = ExaminePlant{}
	_ capability.Capability = ReadPlantSensor{}
	_ capability.Capability = ListPlants{}
	_ capability.Capability = WebSearch{}
)

// Set returns the plant capabilities in registration order followed by
// web_search when searcher is not nil. Finish is not included.
func Set(reg *plants.Registry, searcher web_search.WebSearcher, maxResults int) []capability.Capability {
	caps := []capability.Capability{
		ExaminePlant{Plants: reg},
		ReadPlantSensor{Plants: reg},
		ListPlants{Plants: reg},
	}
	if searcher != nil {
		caps = append(caps, WebSearch{Searcher: searcher, MaxResults: maxResults})
	}
	return caps
}
