package cache

import "github.com/shopspring/decimal"

// UsageCountCache memoizes aggregated usage counts by metering unit name for
// a single billing summary run. It is not safe for concurrent use and must
// not outlive the run that created it.
type UsageCountCache interface {
	Get(unitName string) (decimal.Decimal, bool)
	Set(unitName string, count decimal.Decimal)
	Len() int
}

type usageCountCache struct {
	counts map[string]decimal.Decimal
}

func NewUsageCountCache() UsageCountCache {
	return &usageCountCache{counts: make(map[string]decimal.Decimal)}
}

func (c *usageCountCache) Get(unitName string) (decimal.Decimal, bool) {
	count, ok := c.counts[unitName]
	return count, ok
}

func (c *usageCountCache) Set(unitName string, count decimal.Decimal) {
	c.counts[unitName] = count
}

func (c *usageCountCache) Len() int { return len(c.counts) }
