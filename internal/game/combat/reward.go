package combat

import (
	"sort"

	"go.uber.org/zap"
)

// LootAward is a single resolved item stack in a reward.
type LootAward struct {
	// ItemKey references the item definition.
	ItemKey string
	// Quantity is the merged stack size across all defeated opponents.
	Quantity int
	// Name is the item's display name.
	Name string
	// Icon is the client icon identifier.
	Icon string
}

// RewardEntry is one winner's total reward for a finished session.
type RewardEntry struct {
	// Exp is the summed experience from every decisive loser.
	Exp int
	// Loots are the resolved item awards, ordered by item key.
	Loots []LootAward
}

// Calculator aggregates experience and loot across all decisive losers for
// each winner. Reward computation for different winners is independent: a
// lookup failure in one winner's loot never affects another winner's reward.
type Calculator struct {
	catalog ItemCatalog
	logger  *zap.Logger
}

// NewCalculator creates a Calculator resolving item display data from catalog.
//
// Precondition: catalog and logger must be non-nil.
func NewCalculator(catalog ItemCatalog, logger *zap.Logger) *Calculator {
	return &Calculator{catalog: catalog, logger: logger}
}

// Compute builds the reward for every winner. Experience is queried from each
// decisive loser; candidate drops are merged by item key across all losers,
// then resolved against the catalog. An item key missing from the catalog is
// logged and dropped; it never aborts computation for the remaining items or
// winners.
//
// Postcondition: Returns an entry for every winner; entries may hold zero
// exp and no loot but are never nil.
func (c *Calculator) Compute(winners, losers map[string]Character) map[string]*RewardEntry {
	rewards := make(map[string]*RewardEntry, len(winners))
	for uid, winner := range winners {
		rewards[uid] = c.computeOne(winner, losers)
	}
	return rewards
}

// computeOne builds a single winner's reward entry.
func (c *Calculator) computeOne(winner Character, losers map[string]Character) *RewardEntry {
	entry := &RewardEntry{}
	merged := make(map[string]int)

	for _, loser := range losers {
		entry.Exp += loser.ProvideExp(winner)
		for _, drop := range loser.Loot(winner) {
			merged[drop.ItemKey] += drop.Quantity
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		info, ok := c.catalog.Lookup(key)
		if !ok {
			// Missing world data must not cost the winner the rest of the reward.
			c.logger.Warn("dropping loot with unknown item key",
				zap.String("item_key", key),
				zap.String("winner", winner.UID()),
			)
			continue
		}
		entry.Loots = append(entry.Loots, LootAward{
			ItemKey:  key,
			Quantity: merged[key],
			Name:     info.Name,
			Icon:     info.Icon,
		})
	}
	return entry
}
