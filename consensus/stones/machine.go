package stones

import (
	"time"

	"mossgarden/consensus/geo"
	"mossgarden/consensus/rewards"
	"mossgarden/mossgarden"
)

type ProximityVerifier interface {
	Verify(location geo.Location, proof geo.Proof, maxDistanceMeters uint32) error
}

type PaymentLedger interface {
	Charge(payer mossgarden.Account, amount uint64) error
}

type TokenMinter interface {
	Mint(recipient mossgarden.Account, amount uint64) error
}

// Settler is implemented by ledgers that can charge a buyer and pay out the sale proceeds and territory tax
// in one step. Ledgers without it only charge the buyer.
type Settler interface {
	Settle(payer mossgarden.Account, amount uint64, payouts map[mossgarden.Account]uint64) error
}

type GrowthPolicy struct {
	HarvestInterval int64 // seconds between harvests
	GrowthPeriod    int64 // seconds per point of base growth
	MaxBaseGrowth   uint8
	SporeMinMoss    uint8
	MaxSpores       uint8
}

func DefaultPolicy() GrowthPolicy {
	return GrowthPolicy{
		HarvestInterval: 3600,
		GrowthPeriod:    3600,
		MaxBaseGrowth:   24,
		SporeMinMoss:    50,
		MaxSpores:       3,
	}
}

// PolicyFromConfig overrides DefaultPolicy with any positive values from the global config.
func PolicyFromConfig() GrowthPolicy {
	p := DefaultPolicy()
	conf := mossgarden.MakeOrGetConfig()
	if v := conf.GetInt64("harvestInterval"); v > 0 {
		p.HarvestInterval = v
	}
	if v := conf.GetInt64("growthPeriod"); v > 0 {
		p.GrowthPeriod = v
	}
	if v := conf.GetUint("maxBaseGrowth"); v > 0 && v <= 255 {
		p.MaxBaseGrowth = uint8(v)
	}
	if v := conf.GetUint("sporeMinMoss"); v > 0 && v <= uint(rewards.MaxMoss) {
		p.SporeMinMoss = uint8(v)
	}
	if v := conf.GetUint("maxSpores"); v > 0 && v <= 255 {
		p.MaxSpores = uint8(v)
	}
	return p
}

// ActivationThreshold is the maximum distance in meters between a stone and the proven location for a level.
func ActivationThreshold(level uint8) uint32 {
	switch level {
	case 1:
		return 5000
	case 2:
		return 1000
	case 3:
		return 300
	}
	return 0
}

type ActivationRequest struct {
	Activator mossgarden.Account
	Proof     geo.Proof
	Level     uint8
	Review    *Review
}

// Machine applies activation and harvest to a Stone. It mutates the stone it is given only after
// every check and collaborator call has succeeded, so a failed call leaves the stone untouched.
// It does not lock; the store serializes calls per stone.
type Machine struct {
	Verifier ProximityVerifier
	Ledger   PaymentLedger
	Minter   TokenMinter
	Policy   GrowthPolicy
	Now      func() time.Time
}

func (m *Machine) now() int64 {
	if m.Now == nil {
		return time.Now().Unix()
	}
	return m.Now().Unix()
}

func (m *Machine) Activate(stone *Stone, req ActivationRequest) ([]mossgarden.DomainEvent, error) {
	if !rewards.ValidLevel(req.Level) {
		return nil, ErrInvalidActivationLevel
	}
	if stone.State != Created && stone.State != Locked && !stone.State.Activated() {
		return nil, ErrInvalidState
	}
	if stone.State == Locked || req.Level <= stone.State.Level() {
		return nil, ErrCannotDowngradeActivation
	}
	if req.Review != nil && (req.Review.Rating < 1 || req.Review.Rating > 5) {
		return nil, ErrInvalidParameters
	}
	if err := m.Verifier.Verify(stone.Location, req.Proof, ActivationThreshold(req.Level)); err != nil {
		return nil, err
	}
	cost := rewards.ActivationCost(stone.ActivationCost, req.Level)
	if cost > 0 {
		if err := m.Ledger.Charge(req.Activator, cost); err != nil {
			return nil, ErrPaymentFailed.Wrap(err)
		}
	}
	now := m.now()
	stone.State = stateForLevel(req.Level)
	stone.MossLevel = rewards.InitialMoss(stone.Type, req.Level)
	stone.ActivatedAt = now
	if req.Review != nil {
		r := *req.Review
		if len(r.Reviewer) == 0 {
			r.Reviewer = req.Activator
		}
		if r.CreatedAt == 0 {
			r.CreatedAt = now
		}
		stone.Reviews = append(stone.Reviews, r)
	}
	stone.Sequence++
	return []mossgarden.DomainEvent{StoneActivated{
		StoneID:   stone.ID,
		Activator: req.Activator,
		Timestamp: now,
		Level:     req.Level,
	}}, nil
}

func (m *Machine) GrowAndHarvest(stone *Stone, now int64, sporeBonus uint8, env EnvData) ([]mossgarden.DomainEvent, error) {
	level := stone.State.Level()
	if level == 0 {
		return nil, ErrInvalidState
	}
	ref := stone.LastHarvestTime
	if ref == 0 {
		ref = stone.ActivatedAt
	}
	elapsed := now - ref
	if elapsed < m.Policy.HarvestInterval {
		return nil, ErrHarvestTooSoon
	}
	increment := rewards.GrowthIncrement(
		rewards.BaseGrowth(elapsed, m.Policy.GrowthPeriod, m.Policy.MaxBaseGrowth),
		sporeBonus,
		rewards.EnvironmentBonus(env),
		level,
	)
	moss := rewards.SaturatingAddMoss(stone.MossLevel, increment)
	tokens := rewards.HarvestReward(moss, stone.Type, len(stone.Reviews), level)
	if err := m.Minter.Mint(stone.Owner, tokens); err != nil {
		return nil, ErrMintFailed.Wrap(err)
	}
	stone.MossLevel = moss
	stone.LastHarvestTime = now
	stone.Sequence++
	return []mossgarden.DomainEvent{MossHarvested{
		StoneID:      stone.ID,
		Owner:        stone.Owner,
		MossLevel:    moss,
		TokensMinted: tokens,
		Timestamp:    now,
	}}, nil
}
