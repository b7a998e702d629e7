package lottery

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// DefaultMaxSendingCount bounds the number of draws a single random sending rule may perform
const DefaultMaxSendingCount = 1000

// RandomSendingRule pays SendingCount randomly drawn tickets Ratio/SendingCount of the pool each
type RandomSendingRule struct {
	ID           uint64
	Ratio        *big.Int
	SendingCount uint64
}

// DefinitelySendingRule pays Ratio of the pool to Destination unconditionally
type DefinitelySendingRule struct {
	ID          uint64
	Ratio       *big.Int
	Destination ethcommon.Address
}

// RuleSet is an immutable, ordered copy of the registry taken when a round opens
type RuleSet struct {
	RandomRules     []RandomSendingRule
	DefinitelyRules []DefinitelySendingRule
}

// RandomRuleIDs returns the random sending rule ids in processing order
func (rs *RuleSet) RandomRuleIDs() []uint64 {
	ids := make([]uint64, len(rs.RandomRules))
	for i, r := range rs.RandomRules {
		ids[i] = r.ID
	}
	return ids
}

// DefinitelyRuleIDs returns the definitely sending rule ids in processing order
func (rs *RuleSet) DefinitelyRuleIDs() []uint64 {
	ids := make([]uint64, len(rs.DefinitelyRules))
	for i, r := range rs.DefinitelyRules {
		ids[i] = r.ID
	}
	return ids
}

// RuleRegistry stores the live payout rules. Each kind keeps a lookup map, an ordered list of
// live ids and a monotonic id generator, so ids are never reused and list order is
// registration order.
type RuleRegistry struct {
	maxSendingCount uint64

	randomRules  map[uint64]*RandomSendingRule
	randomIDs    []uint64
	lastRandomID uint64

	definitelyRules  map[uint64]*DefinitelySendingRule
	definitelyIDs    []uint64
	lastDefinitelyID uint64
	destinations     map[ethcommon.Address]uint64
}

// NewRuleRegistry creates an empty registry. A zero maxSendingCount selects DefaultMaxSendingCount
func NewRuleRegistry(maxSendingCount uint64) *RuleRegistry {
	if maxSendingCount == 0 {
		maxSendingCount = DefaultMaxSendingCount
	}
	return &RuleRegistry{
		maxSendingCount: maxSendingCount,
		randomRules:     make(map[uint64]*RandomSendingRule),
		definitelyRules: make(map[uint64]*DefinitelySendingRule),
		destinations:    make(map[ethcommon.Address]uint64),
	}
}

// MaxSendingCount returns the configured ceiling on SendingCount
func (r *RuleRegistry) MaxSendingCount() uint64 {
	return r.maxSendingCount
}

// TotalRatio returns the sum of the ratios of all live rules of both kinds
func (r *RuleRegistry) TotalRatio() *big.Int {
	total := new(big.Int)
	for _, rule := range r.randomRules {
		total.Add(total, rule.Ratio)
	}
	for _, rule := range r.definitelyRules {
		total.Add(total, rule.Ratio)
	}
	return total
}

func (r *RuleRegistry) checkRatio(ratio *big.Int) error {
	if ratio == nil || ratio.Sign() <= 0 {
		return ErrZeroValue
	}
	total := r.TotalRatio()
	if total.Add(total, ratio).Cmp(RatioScale) >= 0 {
		return ErrRatioOverflow
	}
	return nil
}

// AddRandom registers a random sending rule and returns its id
func (r *RuleRegistry) AddRandom(ratio *big.Int, sendingCount uint64) (uint64, error) {
	if sendingCount == 0 {
		return 0, ErrZeroValue
	}
	if err := r.checkRatio(ratio); err != nil {
		return 0, err
	}
	if sendingCount > r.maxSendingCount {
		return 0, ErrSendingCountTooLarge
	}

	r.lastRandomID++
	id := r.lastRandomID
	r.randomRules[id] = &RandomSendingRule{
		ID:           id,
		Ratio:        new(big.Int).Set(ratio),
		SendingCount: sendingCount,
	}
	r.randomIDs = append(r.randomIDs, id)

	return id, nil
}

// RemoveRandom deletes a random sending rule
func (r *RuleRegistry) RemoveRandom(id uint64) error {
	if _, ok := r.randomRules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(r.randomRules, id)
	r.randomIDs = removeID(r.randomIDs, id)
	return nil
}

// AddDefinitely registers a definitely sending rule and returns its id
func (r *RuleRegistry) AddDefinitely(ratio *big.Int, destination ethcommon.Address) (uint64, error) {
	if err := r.checkRatio(ratio); err != nil {
		return 0, err
	}
	if _, ok := r.destinations[destination]; ok {
		return 0, ErrDuplicateAddress
	}

	r.lastDefinitelyID++
	id := r.lastDefinitelyID
	r.definitelyRules[id] = &DefinitelySendingRule{
		ID:          id,
		Ratio:       new(big.Int).Set(ratio),
		Destination: destination,
	}
	r.definitelyIDs = append(r.definitelyIDs, id)
	r.destinations[destination] = id

	return id, nil
}

// RemoveDefinitely deletes a definitely sending rule and releases its destination
func (r *RuleRegistry) RemoveDefinitely(id uint64) error {
	rule, ok := r.definitelyRules[id]
	if !ok {
		return ErrRuleNotFound
	}
	delete(r.definitelyRules, id)
	delete(r.destinations, rule.Destination)
	r.definitelyIDs = removeID(r.definitelyIDs, id)
	return nil
}

// RandomIDs returns the live random sending rule ids in registration order
func (r *RuleRegistry) RandomIDs() []uint64 {
	return append([]uint64(nil), r.randomIDs...)
}

// DefinitelyIDs returns the live definitely sending rule ids in registration order
func (r *RuleRegistry) DefinitelyIDs() []uint64 {
	return append([]uint64(nil), r.definitelyIDs...)
}

// Random returns a copy of the random sending rule with the given id
func (r *RuleRegistry) Random(id uint64) (RandomSendingRule, bool) {
	rule, ok := r.randomRules[id]
	if !ok {
		return RandomSendingRule{}, false
	}
	return copyRandomRule(rule), true
}

// Definitely returns a copy of the definitely sending rule with the given id
func (r *RuleRegistry) Definitely(id uint64) (DefinitelySendingRule, bool) {
	rule, ok := r.definitelyRules[id]
	if !ok {
		return DefinitelySendingRule{}, false
	}
	return copyDefinitelyRule(rule), true
}

// Snapshot returns the live rules in processing order
func (r *RuleRegistry) Snapshot() *RuleSet {
	rs := &RuleSet{
		RandomRules:     make([]RandomSendingRule, 0, len(r.randomIDs)),
		DefinitelyRules: make([]DefinitelySendingRule, 0, len(r.definitelyIDs)),
	}
	for _, id := range r.randomIDs {
		rs.RandomRules = append(rs.RandomRules, copyRandomRule(r.randomRules[id]))
	}
	for _, id := range r.definitelyIDs {
		rs.DefinitelyRules = append(rs.DefinitelyRules, copyDefinitelyRule(r.definitelyRules[id]))
	}
	return rs
}

func copyRandomRule(rule *RandomSendingRule) RandomSendingRule {
	return RandomSendingRule{
		ID:           rule.ID,
		Ratio:        new(big.Int).Set(rule.Ratio),
		SendingCount: rule.SendingCount,
	}
}

func copyDefinitelyRule(rule *DefinitelySendingRule) DefinitelySendingRule {
	return DefinitelySendingRule{
		ID:          rule.ID,
		Ratio:       new(big.Int).Set(rule.Ratio),
		Destination: rule.Destination,
	}
}

func removeID(ids []uint64, id uint64) []uint64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
