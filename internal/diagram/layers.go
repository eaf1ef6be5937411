package diagram

// Layer ranks order categories into horizontal bands, 1 at the top of the
// canvas through 10 at the bottom: clients face the user, data sits under
// everything. Categories missing from the table land mid-stack.
var layerRanks = map[string]int{
	"client":   1,
	"network":  2,
	"api":      3,
	"auth":     4,
	"service":  5,
	"queue":    6,
	"cache":    7,
	"data":     8,
	"storage":  9,
	"external": 10,
}

const defaultLayerRank = 5

// LayerFor returns the band rank for a category.
func LayerFor(category string) int {
	if rank, ok := layerRanks[category]; ok {
		return rank
	}
	return defaultLayerRank
}
