package split

import (
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
)

// MaxAllocated is the provider ceiling; 1% always stays with the primary beneficiary
const MaxAllocated = 99

// Compute turns line items into percentage allocations of the total
// (base + items). It returns nil when there is nothing to split.
// Any overflow above MaxAllocated is taken from the first allocation.
func Compute(baseMinor int64, items []domain.LineItem) []domain.SplitAllocation {
	if len(items) == 0 {
		return nil
	}

	total := baseMinor
	for _, item := range items {
		if item.AmountMinor > 0 {
			total += item.AmountMinor
		}
	}
	if total <= 0 {
		return nil
	}

	allocations := make([]domain.SplitAllocation, 0, len(items))
	sum := 0
	for _, item := range items {
		if item.AmountMinor <= 0 {
			continue
		}
		pct := roundHalfUpPercent(item.AmountMinor, total)
		if pct == 0 {
			continue
		}
		allocations = append(allocations, domain.SplitAllocation{
			BeneficiaryID: item.BeneficiaryID,
			Percentage:    pct,
		})
		sum += pct
	}

	overflow := sum - MaxAllocated
	for overflow > 0 && len(allocations) > 0 {
		if allocations[0].Percentage > overflow {
			allocations[0].Percentage -= overflow
			break
		}
		overflow -= allocations[0].Percentage
		allocations = allocations[1:]
	}

	if len(allocations) == 0 {
		return nil
	}
	return allocations
}

// roundHalfUpPercent is round(part*100/total) in integer arithmetic
func roundHalfUpPercent(part, total int64) int {
	return int((part*200 + total) / (2 * total))
}
