package stones

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mossgarden/consensus/ledger"
	"mossgarden/mossgarden"
)

func TestRegisterGenesis(t *testing.T) {
	f := newFixture()

	_, err := f.db.registerGenesis("g1", "missing", "creator", "", home, 1000, epoch)
	assert.ErrorIs(t, err, ErrGenomeNotFound)
	_, err = f.db.registerGenesis("g1", "genome", "someone", "", home, 1000, epoch)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.db.registerGenesis("g1", "genome", "creator", "", north(home, 2500), 1000, epoch)
	assert.ErrorIs(t, err, ErrLocationOutOfBounds)
	assert.Empty(t, f.sink.kinds())

	st, err := f.db.registerGenesis("g1", "genome", "creator", "", north(home, 1500), 1000, epoch)
	require.NoError(t, err)
	assert.Equal(t, Genesis, st.Type)
	assert.Equal(t, mossgarden.Account("creator"), st.Owner)
	assert.Equal(t, Created, st.State)
	assert.Equal(t, []int64{mossgarden.KindStoneCreated}, f.sink.kinds())

	_, err = f.db.registerGenesis("g1", "genome", "creator", "", home, 1000, epoch)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, ok := f.db.get("g1")
	require.True(t, ok)
	assert.Equal(t, st, got)
}

func TestMintAstral(t *testing.T) {
	f := newFixture()
	f.put(genesisStone("g1", 1000))

	astral, err := f.db.mintAstral("a1", "g1", "buyer", north(home, 100), epoch)
	require.NoError(t, err)
	assert.Equal(t, Astral, astral.Type)
	assert.Equal(t, mossgarden.S256Hash("g1"), astral.GenesisID)
	assert.Equal(t, mossgarden.S256Hash("genome"), astral.GenomeID)
	assert.Equal(t, mossgarden.Account("buyer"), astral.Owner)

	assert.Equal(t, uint64(1000), f.ledger.charged["buyer"])
	assert.Equal(t, uint64(100), f.ledger.credited["creator"], "territory tax goes to the genome owner")
	assert.Equal(t, uint64(900), f.ledger.credited["owner"], "the rest goes to the genesis owner")

	require.Len(t, f.sink.events, 2)
	assert.Equal(t, AstralMinted{GenesisID: "g1", AstralID: "a1", Buyer: "buyer", PaymentAmount: 1000, TaxAmount: 100, Timestamp: epoch}, f.sink.events[0])
	assert.Equal(t, mossgarden.KindStoneCreated, f.sink.events[1].EventKind())

	_, err = f.db.mintAstral("a2", "a1", "buyer", home, epoch)
	assert.ErrorIs(t, err, ErrNotGenesis)
	_, err = f.db.mintAstral("a2", "nope", "buyer", home, epoch)
	assert.ErrorIs(t, err, ErrStoneNotFound)
	_, err = f.db.mintAstral("a2", "g1", "buyer", north(home, 3000), epoch)
	assert.ErrorIs(t, err, ErrLocationOutOfBounds)
	_, err = f.db.mintAstral("a1", "g1", "buyer", home, epoch)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMintAstral_PayoutFailureLeavesEveryoneWhole(t *testing.T) {
	f := newFixture()
	f.put(genesisStone("g1", 1000))
	l := ledger.New()
	require.NoError(t, l.Mint("buyer", 1000))
	require.NoError(t, l.Mint("owner", math.MaxUint64-10))
	f.db.machine.Ledger = l

	_, err := f.db.mintAstral("a1", "g1", "buyer", home, epoch)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, ledger.ErrOverflow)
	assert.Equal(t, uint64(1000), l.Balance("buyer"), "the buyer keeps their tokens")
	assert.Equal(t, uint64(0), l.Balance("creator"), "no tax is paid on a failed sale")
	assert.Equal(t, uint64(math.MaxUint64-10), l.Balance("owner"))
	_, ok := f.db.get("a1")
	assert.False(t, ok)
	assert.Empty(t, f.sink.kinds())

	f.genome.Owner = "owner"
	l2 := ledger.New()
	require.NoError(t, l2.Mint("buyer", 1000))
	f.db.machine.Ledger = l2
	_, err = f.db.mintAstral("a1", "g1", "buyer", home, epoch)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), l2.Balance("buyer"))
	assert.Equal(t, uint64(1000), l2.Balance("owner"), "tax and proceeds to one owner add up")
}

func TestMintAstral_SettleFailure(t *testing.T) {
	f := newFixture()
	f.put(genesisStone("g1", 1000))
	f.ledger.settleErr = errBank

	_, err := f.db.mintAstral("a1", "g1", "buyer", home, epoch)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, errBank)
	assert.Empty(t, f.ledger.charged)
	assert.Empty(t, f.ledger.credited)
	_, ok := f.db.get("a1")
	assert.False(t, ok)
	assert.Empty(t, f.sink.kinds())
}

func TestMintAstral_ChargeOnlyLedger(t *testing.T) {
	f := newFixture()
	f.put(genesisStone("g1", 1000))
	f.db.machine.Ledger = chargeOnly{ledger: f.ledger}

	_, err := f.db.mintAstral("a1", "g1", "buyer", home, epoch)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), f.ledger.charged["buyer"])
	assert.Empty(t, f.ledger.credited)
}

func TestMintAstral_PaymentFailure(t *testing.T) {
	f := newFixture()
	f.put(genesisStone("g1", 1000))
	f.ledger.chargeErr = errBank

	_, err := f.db.mintAstral("a1", "g1", "buyer", home, epoch)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	_, ok := f.db.get("a1")
	assert.False(t, ok)
	assert.Empty(t, f.ledger.credited)
	assert.Empty(t, f.sink.kinds())
}

func TestStoreActivate(t *testing.T) {
	f := newFixture()
	f.put(genesisStone("g1", 1000))

	_, err := f.db.activate("missing", activation(1, home, epoch))
	assert.ErrorIs(t, err, ErrStoneNotFound)

	st, err := f.db.activate("g1", activation(2, home, epoch))
	require.NoError(t, err)
	assert.Equal(t, ActivatedLevel2, st.State)
	assert.Equal(t, int64(2), st.Sequence)
	assert.Equal(t, []int64{mossgarden.KindStoneActivated}, f.sink.kinds())

	stored, _ := f.db.get("g1")
	assert.Equal(t, st, stored)
}

func TestStoreActivate_FailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture()
	f.put(genesisStone("g1", 1000))
	before, _ := f.db.get("g1")
	hash := func() string {
		f.db.mutex.Lock()
		defer f.db.mutex.Unlock()
		return hashSeq(f.db.data).Hash
	}
	h := hash()

	f.ledger.chargeErr = errBank
	_, err := f.db.activate("g1", activation(1, home, epoch))
	assert.ErrorIs(t, err, ErrPaymentFailed)

	after, _ := f.db.get("g1")
	assert.Equal(t, before, after)
	assert.Equal(t, h, hash())
	assert.Empty(t, f.sink.kinds())
}

func TestStoreActivate_Concurrent(t *testing.T) {
	f := newFixture()
	f.put(genesisStone("g1", 1000))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.db.activate("g1", activation(2, home, epoch))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	var ok, downgrades int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrCannotDowngradeActivation)
		downgrades++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, downgrades)
	assert.Equal(t, 1, f.ledger.charges)
	assert.Equal(t, uint64(1000), f.ledger.charged["player"])
}

func TestStoreActivate_IndependentStones(t *testing.T) {
	f := newFixture()
	ids := []mossgarden.S256Hash{"a", "b", "c", "d"}
	for _, id := range ids {
		f.put(genesisStone(id, 10))
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id mossgarden.S256Hash) {
			defer wg.Done()
			_, err := f.db.activate(id, activation(3, home, epoch))
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()
	for _, id := range ids {
		st, _ := f.db.get(id)
		assert.Equal(t, ActivatedLevel3, st.State)
	}
}

func TestStoreHarvest(t *testing.T) {
	f := newFixture()
	f.put(activated(1, 20, epoch))

	_, err := f.db.harvest("s1", "stranger", EnvData{}, epoch+3600)
	assert.ErrorIs(t, err, ErrUnauthorized)

	st, err := f.db.harvest("s1", "owner", EnvData{}, epoch+3600)
	require.NoError(t, err)
	// 1 hour + level 1
	assert.Equal(t, uint8(22), st.MossLevel)
	assert.Equal(t, []int64{mossgarden.KindMossHarvested}, f.sink.kinds())

	_, err = f.db.harvest("s1", "owner", EnvData{}, epoch+3601)
	assert.ErrorIs(t, err, ErrHarvestTooSoon)
}

func TestStoreHarvest_SporeBonusIsCapped(t *testing.T) {
	f := newFixture()
	st := activated(1, 0, epoch)
	for i := 0; i < 5; i++ {
		st.Spores = append(st.Spores, Spore{SourceGenomeID: mossgarden.S256Hash(rune('a' + i))})
	}
	f.put(st)
	got, err := f.db.harvest("s1", "owner", EnvData{}, epoch+3600)
	require.NoError(t, err)
	// 1 hour + 3 spores + level 1
	assert.Equal(t, uint8(5), got.MossLevel)
}

func TestSendSpore(t *testing.T) {
	f := newFixture()
	source := activated(2, 60, epoch)
	source.ID = "source"
	target := genesisStone("target", 10)
	target.Owner = "someone"
	f.put(source)
	f.put(target)

	assert.ErrorIs(t, f.db.sendSpore("source", "target", "stranger", epoch), ErrUnauthorized)
	assert.ErrorIs(t, f.db.sendSpore("source", "source", "owner", epoch), ErrInvalidParameters)
	assert.ErrorIs(t, f.db.sendSpore("source", "missing", "owner", epoch), ErrStoneNotFound)

	require.NoError(t, f.db.sendSpore("source", "target", "owner", epoch))
	s, _ := f.db.get("source")
	tg, _ := f.db.get("target")
	assert.Equal(t, uint8(1), s.SporesSent)
	require.Len(t, tg.Spores, 1)
	assert.Equal(t, Spore{SourceID: "source", SourceGenomeID: "genome", Sender: "owner", SentAt: epoch}, tg.Spores[0])
	assert.Equal(t, []int64{mossgarden.KindSporeSent}, f.sink.kinds())

	assert.ErrorIs(t, f.db.sendSpore("source", "target", "owner", epoch), ErrDuplicateSpore)
}

func TestSendSpore_Limits(t *testing.T) {
	f := newFixture()
	young := activated(1, 49, epoch)
	young.ID = "young"
	f.put(young)
	f.put(genesisStone("target", 10))
	assert.ErrorIs(t, f.db.sendSpore("young", "target", "owner", epoch), ErrMossTooYoung)

	dormant := genesisStone("dormant", 10)
	dormant.MossLevel = 80
	f.put(dormant)
	assert.ErrorIs(t, f.db.sendSpore("dormant", "target", "owner", epoch), ErrInvalidState)

	spent := activated(3, 80, epoch)
	spent.ID = "spent"
	spent.SporesSent = 3
	f.put(spent)
	assert.ErrorIs(t, f.db.sendSpore("spent", "target", "owner", epoch), ErrMaxSporesReached)

	ready := activated(3, 80, epoch)
	ready.ID = "ready"
	f.put(ready)
	locked := genesisStone("locked", 10)
	locked.State = Locked
	f.put(locked)
	assert.ErrorIs(t, f.db.sendSpore("ready", "locked", "owner", epoch), ErrInvalidState)
}

func TestLockUnlock(t *testing.T) {
	f := newFixture()
	f.put(activated(2, 40, epoch))

	st, err := f.db.lock("s1", epoch)
	require.NoError(t, err)
	assert.Equal(t, Locked, st.State)
	assert.Equal(t, ActivatedLevel2, st.LockedFrom)
	_, err = f.db.lock("s1", epoch)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.db.activate("s1", activation(3, home, epoch))
	assert.ErrorIs(t, err, ErrCannotDowngradeActivation)
	_, err = f.db.harvest("s1", "owner", EnvData{}, epoch+7200)
	assert.ErrorIs(t, err, ErrInvalidState)

	st, err = f.db.unlock("s1", epoch)
	require.NoError(t, err)
	assert.Equal(t, ActivatedLevel2, st.State)
	assert.Equal(t, uint8(40), st.MossLevel)
	_, err = f.db.unlock("s1", epoch)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, []int64{mossgarden.KindStoneLocked, mossgarden.KindStoneUnlocked}, f.sink.kinds())
}

func TestNotStarted(t *testing.T) {
	s := newDb(Deps{})
	_, err := s.activate("s1", activation(1, home, epoch))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestAllIsOrdered(t *testing.T) {
	f := newFixture()
	b := genesisStone("b", 1)
	b.CreatedAt = epoch + 1
	f.put(b)
	f.put(genesisStone("c", 1))
	f.put(genesisStone("a", 1))
	var ids []mossgarden.S256Hash
	for _, st := range f.db.all() {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []mossgarden.S256Hash{"a", "c", "b"}, ids)
}
