package analytics

import (
	"math"

	"github.com/kestrelmd/matchbook/internal/book"
)

// DepthStats summarizes the size distribution of resting levels on one side
// of a book.
type DepthStats struct {
	TotalVolume      uint64
	LevelsCount      int
	AvgLevelSize     float64
	WeightedAvgPrice float64
	MinLevelSize     uint64
	MaxLevelSize     uint64
	StdDevLevelSize  float64
}

func ZeroDepthStats() DepthStats { return DepthStats{} }

func (d DepthStats) IsEmpty() bool { return d.LevelsCount == 0 || d.TotalVolume == 0 }

// ComputeDepthStats aggregates side's resting levels. Volume is total
// quantity (visible + hidden) per level, matching the Σ quantity×price
// weighting convention used by weighted_avg_price.
func ComputeDepthStats(b *book.OrderBook, side book.Side) DepthStats {
	levels := b.Levels(side)
	if len(levels) == 0 {
		return ZeroDepthStats()
	}

	var totalVolume uint64
	var weightedSum float64
	minSize := levels[0].TotalQuantity()
	maxSize := levels[0].TotalQuantity()
	sizes := make([]uint64, 0, len(levels))

	for _, level := range levels {
		size := level.TotalQuantity()
		sizes = append(sizes, size)
		totalVolume += size
		weightedSum += float64(level.Price()) * float64(size)
		if size < minSize {
			minSize = size
		}
		if size > maxSize {
			maxSize = size
		}
	}

	avgSize := float64(totalVolume) / float64(len(levels))
	var weightedAvgPrice float64
	if totalVolume > 0 {
		weightedAvgPrice = weightedSum / float64(totalVolume)
	}

	var variance float64
	for _, size := range sizes {
		diff := float64(size) - avgSize
		variance += diff * diff
	}
	variance /= float64(len(sizes))

	return DepthStats{
		TotalVolume:      totalVolume,
		LevelsCount:      len(levels),
		AvgLevelSize:     avgSize,
		WeightedAvgPrice: weightedAvgPrice,
		MinLevelSize:     minSize,
		MaxLevelSize:     maxSize,
		StdDevLevelSize:  math.Sqrt(variance),
	}
}

// DistributionBin is one price-range bucket of a depth distribution.
type DistributionBin struct {
	MinPrice   uint64
	MaxPrice   uint64
	Volume     uint64
	LevelCount int
}

func (b DistributionBin) Midpoint() uint64 { return (b.MinPrice + b.MaxPrice) / 2 }

func (b DistributionBin) Width() uint64 {
	if b.MaxPrice < b.MinPrice {
		return 0
	}
	return b.MaxPrice - b.MinPrice
}

// ComputeDistribution buckets side's resting levels into binCount equal-width
// bins spanning the side's observed price range. Returns nil if the side has
// no levels or binCount <= 0.
func ComputeDistribution(b *book.OrderBook, side book.Side, binCount int) []DistributionBin {
	levels := b.Levels(side)
	if len(levels) == 0 || binCount <= 0 {
		return nil
	}

	minPrice, maxPrice := levels[0].Price(), levels[0].Price()
	for _, level := range levels {
		if level.Price() < minPrice {
			minPrice = level.Price()
		}
		if level.Price() > maxPrice {
			maxPrice = level.Price()
		}
	}

	width := (maxPrice - minPrice) / uint64(binCount)
	if width == 0 {
		width = 1
	}

	bins := make([]DistributionBin, binCount)
	for i := range bins {
		bins[i].MinPrice = minPrice + uint64(i)*width
		bins[i].MaxPrice = bins[i].MinPrice + width
	}
	bins[binCount-1].MaxPrice = maxPrice + 1

	for _, level := range levels {
		idx := int((level.Price() - minPrice) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		bins[idx].Volume += level.TotalQuantity()
		bins[idx].LevelCount++
	}
	return bins
}
