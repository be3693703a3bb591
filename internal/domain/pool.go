package domain

import (
	"fmt"
	"time"
)

const DefaultPoolLimit int64 = 100

// FreePool is the global cap on free conversations ever granted.
type FreePool struct {
	UsedFreeCount int64
	Limit         int64
	Version       int64
	UpdatedAt     time.Time
}

func NewFreePool(limit int64) FreePool {
	return FreePool{Limit: limit}
}

func (p FreePool) Validate() error {
	if p.Limit < 0 {
		return fmt.Errorf("pool limit must not be negative")
	}
	if p.UsedFreeCount < 0 {
		return fmt.Errorf("pool used count must not be negative")
	}
	if p.UsedFreeCount > p.Limit {
		return fmt.Errorf("pool used count %d exceeds limit %d", p.UsedFreeCount, p.Limit)
	}

	return nil
}

func (p FreePool) Remaining() int64 {
	if p.UsedFreeCount >= p.Limit {
		return 0
	}

	return p.Limit - p.UsedFreeCount
}

func (p *FreePool) take(now time.Time) {
	p.UsedFreeCount++
	p.UpdatedAt = now.UTC()
}
