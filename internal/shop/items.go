// Package shop holds the static item catalog and player inventories.
// Item id scheme: skin:<game>:<skin_key>. Prices are in coins.
package shop

const DefaultPrice = 60

// Item is one purchasable catalog entry.
type Item struct {
	ID    string `json:"item_id"`
	Title string `json:"title"`
	Game  string `json:"game"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Price int    `json:"price"`
}

var catalog = []Item{
	{ID: "skin:xo:3d", Title: "XO: 3D", Game: "xo", Kind: "skin", Value: "3d", Price: DefaultPrice},
	{ID: "skin:xo:neon", Title: "XO: Neon", Game: "xo", Kind: "skin", Value: "neon", Price: DefaultPrice},
	{ID: "skin:xo:mono", Title: "XO: Mono", Game: "xo", Kind: "skin", Value: "mono", Price: DefaultPrice},
	{ID: "skin:checkers:3d", Title: "Checkers: 3D", Game: "checkers", Kind: "skin", Value: "3d", Price: DefaultPrice},
	{ID: "skin:checkers:neon", Title: "Checkers: Neon", Game: "checkers", Kind: "skin", Value: "neon", Price: DefaultPrice},
	{ID: "skin:checkers:minimal", Title: "Checkers: Minimal", Game: "checkers", Kind: "skin", Value: "minimal", Price: DefaultPrice},
}

// Items returns the full catalog.
func Items() []Item {
	out := make([]Item, len(catalog))
	copy(out, catalog)
	return out
}

// ItemsForGame filters the catalog by game.
func ItemsForGame(gameName string) []Item {
	var out []Item
	for _, it := range catalog {
		if it.Game == gameName {
			out = append(out, it)
		}
	}
	return out
}

// GetItem looks an item up by id.
func GetItem(id string) (Item, bool) {
	for _, it := range catalog {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
