package stones

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mossgarden/consensus/geo"
	"mossgarden/mossgarden"
)

func activation(level uint8, at geo.Location, timestamp int64) ActivationRequest {
	return ActivationRequest{Activator: "player", Proof: proofFor(at, timestamp), Level: level}
}

func TestActivate_GenesisLevelTwo(t *testing.T) {
	ledger := newFakeLedger()
	m := newMachine(ledger, &clock{now: epoch})
	stone := genesisStone("s1", 1000)

	events, err := m.Activate(&stone, activation(2, north(home, 500), epoch))
	require.NoError(t, err)
	assert.Equal(t, ActivatedLevel2, stone.State)
	assert.Equal(t, uint8(25), stone.MossLevel)
	assert.Equal(t, epoch, stone.ActivatedAt)
	assert.Equal(t, uint64(1000), ledger.charged["player"])
	require.Len(t, events, 1)
	assert.Equal(t, StoneActivated{StoneID: "s1", Activator: "player", Timestamp: epoch, Level: 2}, events[0])
}

func TestActivate_AstralInitialMoss(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	stone := genesisStone("s1", 0)
	stone.Type = Astral
	_, err := m.Activate(&stone, activation(2, home, epoch))
	require.NoError(t, err)
	assert.Equal(t, uint8(15), stone.MossLevel)
}

func TestActivate_OutsideLevelTwoRange(t *testing.T) {
	ledger := newFakeLedger()
	m := newMachine(ledger, &clock{now: epoch})
	stone := genesisStone("s1", 1000)
	before := stone.clone()

	_, err := m.Activate(&stone, activation(2, north(home, 1200), epoch))
	assert.ErrorIs(t, err, geo.ErrOutsideRange)
	assert.Equal(t, before, stone)
	assert.Equal(t, 0, ledger.charges)

	// the same proof is close enough for level 1
	_, err = m.Activate(&stone, activation(1, north(home, 1200), epoch))
	assert.NoError(t, err)
	assert.Equal(t, uint64(800), ledger.charged["player"])
}

func TestActivate_CostScaling(t *testing.T) {
	for level, want := range map[uint8]uint64{1: 800, 2: 1000, 3: 1200} {
		ledger := newFakeLedger()
		m := newMachine(ledger, &clock{now: epoch})
		stone := genesisStone("s1", 1000)
		_, err := m.Activate(&stone, activation(level, home, epoch))
		require.NoError(t, err)
		assert.Equal(t, want, ledger.charged["player"], "level %d", level)
	}
}

func TestActivate_ZeroCostSkipsPayment(t *testing.T) {
	ledger := newFakeLedger()
	ledger.chargeErr = errBank
	m := newMachine(ledger, &clock{now: epoch})
	stone := genesisStone("s1", 0)
	_, err := m.Activate(&stone, activation(1, home, epoch))
	assert.NoError(t, err)
}

func TestActivate_InvalidLevel(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	for _, level := range []uint8{0, 4, 255} {
		stone := genesisStone("s1", 1000)
		_, err := m.Activate(&stone, activation(level, home, epoch))
		assert.ErrorIs(t, err, ErrInvalidActivationLevel)
		kind, _ := mossgarden.KindOf(err)
		assert.Equal(t, mossgarden.ValidationError, kind)
	}
}

func TestActivate_Monotonic(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	stone := genesisStone("s1", 1000)

	_, err := m.Activate(&stone, activation(2, home, epoch))
	require.NoError(t, err)
	for _, level := range []uint8{1, 2} {
		_, err = m.Activate(&stone, activation(level, home, epoch))
		assert.ErrorIs(t, err, ErrCannotDowngradeActivation)
		assert.Equal(t, ActivatedLevel2, stone.State)
	}
	_, err = m.Activate(&stone, activation(3, home, epoch))
	require.NoError(t, err)
	assert.Equal(t, ActivatedLevel3, stone.State)
	for _, level := range []uint8{1, 2, 3} {
		_, err = m.Activate(&stone, activation(level, home, epoch))
		assert.ErrorIs(t, err, ErrCannotDowngradeActivation)
	}
}

func TestActivate_Locked(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	stone := genesisStone("s1", 1000)
	stone.State = Locked
	_, err := m.Activate(&stone, activation(3, home, epoch))
	assert.ErrorIs(t, err, ErrCannotDowngradeActivation)
}

func TestActivate_UnknownState(t *testing.T) {
	ledger := newFakeLedger()
	m := newMachine(ledger, &clock{now: epoch})
	stone := genesisStone("s1", 1000)
	stone.State = Locked + 1
	_, err := m.Activate(&stone, activation(3, home, epoch))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, Locked+1, stone.State)
	assert.Zero(t, ledger.charges)
}

func TestActivate_Review(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	stone := genesisStone("s1", 1000)

	req := activation(1, home, epoch)
	req.Review = &Review{Rating: 6}
	_, err := m.Activate(&stone, req)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	req.Review = &Review{Rating: 5, Comment: "lovely moss"}
	_, err = m.Activate(&stone, req)
	require.NoError(t, err)
	require.Len(t, stone.Reviews, 1)
	assert.Equal(t, Review{Reviewer: "player", Rating: 5, Comment: "lovely moss", CreatedAt: epoch}, stone.Reviews[0])
}

func TestActivate_PaymentFailureIsAtomic(t *testing.T) {
	ledger := newFakeLedger()
	ledger.chargeErr = errBank
	m := newMachine(ledger, &clock{now: epoch})
	stone := genesisStone("s1", 1000)
	before := stone.clone()

	events, err := m.Activate(&stone, activation(2, home, epoch))
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.True(t, errors.Is(err, errBank))
	kind, _ := mossgarden.KindOf(err)
	assert.Equal(t, mossgarden.DependencyError, kind)
	assert.Empty(t, events)
	assert.Equal(t, before, stone)
}

func TestActivate_ProofProblemsPropagate(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	stone := genesisStone("s1", 1000)

	_, err := m.Activate(&stone, activation(1, home, epoch-3600))
	assert.ErrorIs(t, err, geo.ErrProofExpired)

	req := activation(1, home, epoch)
	req.Proof.Oracle = "stranger"
	_, err = m.Activate(&stone, req)
	assert.ErrorIs(t, err, geo.ErrUnauthorizedIssuer)
	assert.Equal(t, Created, stone.State)
}

func activated(level uint8, moss uint8, activatedAt int64) Stone {
	st := genesisStone("s1", 1000)
	st.State = stateForLevel(level)
	st.MossLevel = moss
	st.ActivatedAt = activatedAt
	return st
}

func TestGrowAndHarvest_LevelThree(t *testing.T) {
	ledger := newFakeLedger()
	m := newMachine(ledger, &clock{now: epoch})
	stone := activated(3, 30, epoch)
	env := EnvData{Temperature: 20, Humidity: 70, AirQuality: 80, LightLevel: 10}

	// 2 hours base growth + 1 spore + 3 environment + 3 level = 9
	events, err := m.GrowAndHarvest(&stone, epoch+7200, 1, env)
	require.NoError(t, err)
	assert.Equal(t, uint8(39), stone.MossLevel)
	assert.Equal(t, epoch+7200, stone.LastHarvestTime)
	// (10 + 39/10 + 5) * 150 / 100
	assert.Equal(t, uint64(27), ledger.minted["owner"])
	require.Len(t, events, 1)
	assert.Equal(t, MossHarvested{StoneID: "s1", Owner: "owner", MossLevel: 39, TokensMinted: 27, Timestamp: epoch + 7200}, events[0])
}

func TestGrowAndHarvest_Interval(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	stone := activated(1, 10, epoch)

	_, err := m.GrowAndHarvest(&stone, epoch+3599, 0, EnvData{})
	assert.ErrorIs(t, err, ErrHarvestTooSoon)
	_, err = m.GrowAndHarvest(&stone, epoch+3600, 0, EnvData{})
	require.NoError(t, err)
	_, err = m.GrowAndHarvest(&stone, epoch+3600+1800, 0, EnvData{})
	assert.ErrorIs(t, err, ErrHarvestTooSoon)
	kind, _ := mossgarden.KindOf(err)
	assert.Equal(t, mossgarden.StateError, kind)
}

func TestGrowAndHarvest_BaseGrowthCap(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	stone := activated(1, 0, epoch)
	_, err := m.GrowAndHarvest(&stone, epoch+10*24*3600, 0, EnvData{})
	require.NoError(t, err)
	assert.Equal(t, uint8(24+1), stone.MossLevel)
}

func TestGrowAndHarvest_NotActivated(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	for _, state := range []State{Created, Locked} {
		stone := genesisStone("s1", 1000)
		stone.State = state
		_, err := m.GrowAndHarvest(&stone, epoch+7200, 0, EnvData{})
		assert.ErrorIs(t, err, ErrInvalidState)
	}
}

func TestGrowAndHarvest_Saturates(t *testing.T) {
	m := newMachine(newFakeLedger(), &clock{now: epoch})
	stone := activated(3, 98, epoch)
	_, err := m.GrowAndHarvest(&stone, epoch+86400, 3, EnvData{Temperature: 20, Humidity: 70, AirQuality: 90, LightLevel: 90})
	require.NoError(t, err)
	assert.Equal(t, uint8(100), stone.MossLevel)
}

func TestGrowAndHarvest_MintFailureIsAtomic(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mintErr = errBank
	m := newMachine(ledger, &clock{now: epoch})
	stone := activated(2, 40, epoch)
	before := stone.clone()

	_, err := m.GrowAndHarvest(&stone, epoch+7200, 0, EnvData{})
	assert.ErrorIs(t, err, ErrMintFailed)
	assert.True(t, errors.Is(err, errBank))
	assert.Equal(t, before, stone)
}

func TestGrowAndHarvest_Deterministic(t *testing.T) {
	run := func() (Stone, uint64) {
		ledger := newFakeLedger()
		m := newMachine(ledger, &clock{now: epoch})
		stone := activated(2, 33, epoch)
		stone.Reviews = []Review{{Rating: 4}, {Rating: 2}}
		_, err := m.GrowAndHarvest(&stone, epoch+5*3600, 2, EnvData{Temperature: 16, Humidity: 61})
		require.NoError(t, err)
		return stone, ledger.minted["owner"]
	}
	a, tokensA := run()
	b, tokensB := run()
	assert.Equal(t, a, b)
	assert.Equal(t, tokensA, tokensB)
}

func TestPolicyFromConfig(t *testing.T) {
	assert.Equal(t, DefaultPolicy(), PolicyFromConfig())
}

func TestStateLevels(t *testing.T) {
	assert.Equal(t, uint8(0), Created.Level())
	assert.Equal(t, uint8(0), Locked.Level())
	assert.Equal(t, uint8(3), ActivatedLevel3.Level())
	assert.Equal(t, "activated-2", ActivatedLevel2.String())
	assert.Equal(t, ActivatedLevel1, stateForLevel(1))
}
