// backend/src/services/rewards_service.go
package services

import (
	"math/big"
)

// RewardTokenSymbol is the incentive token granted per settled purchase.
const RewardTokenSymbol = "REUSE"

// rewardUnitsPerItem is one whole token (10^18 base units) per
// purchased unit.
var rewardUnitsPerItem = big.NewInt(1_000_000_000_000_000_000)

// RewardsService computes the incentive earned by a verified purchase.
type RewardsService interface {
	ForQuantity(quantity *big.Int) Reward
	ForQuantityString(quantity string) (Reward, bool)
}

type rewardsServiceImpl struct{}

func NewRewardsService() RewardsService {
	return &rewardsServiceImpl{}
}

func (r *rewardsServiceImpl) ForQuantity(quantity *big.Int) Reward {
	amount := new(big.Int).Mul(quantity, rewardUnitsPerItem)
	return Reward{Token: RewardTokenSymbol, Amount: amount.String()}
}

// ForQuantityString computes the reward from a decimal-string quantity
// as stored in an audit record. Reports false for malformed input.
func (r *rewardsServiceImpl) ForQuantityString(quantity string) (Reward, bool) {
	parsed, ok := new(big.Int).SetString(quantity, 10)
	if !ok {
		return Reward{}, false
	}
	return r.ForQuantity(parsed), true
}
