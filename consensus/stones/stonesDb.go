package stones

import (
	"os"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"mossgarden/consensus/genomes"
	"mossgarden/consensus/geo"
	"mossgarden/database"
	"mossgarden/mossgarden"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotStarted = mossgarden.NewFault(mossgarden.DependencyError, "stones mind has not started")

type GenomeLookup func(id mossgarden.S256Hash) (genomes.Genome, bool)

// Deps are the collaborators the Stones Mind runs with.
type Deps struct {
	Machine *Machine
	Genomes GenomeLookup
	Sink    mossgarden.EventSink
}

// db holds every Stone. Each stone has its own lock which is held for the whole of an operation on
// that stone, including collaborator calls. The store mutex only guards the maps and is never held
// while waiting for a stone lock.
type db struct {
	data    map[mossgarden.S256Hash]Stone
	locks   map[mossgarden.S256Hash]*deadlock.Mutex
	mutex   *deadlock.Mutex
	machine *Machine
	genomes GenomeLookup
	sink    mossgarden.EventSink
	persist bool
}

func newDb(deps Deps) *db {
	s := &db{
		data:  make(map[mossgarden.S256Hash]Stone),
		locks: make(map[mossgarden.S256Hash]*deadlock.Mutex),
		mutex: &deadlock.Mutex{},
	}
	s.configure(deps)
	return s
}

func (s *db) configure(deps Deps) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.machine = deps.Machine
	s.genomes = deps.Genomes
	if s.genomes == nil {
		s.genomes = genomes.Get
	}
	s.sink = deps.Sink
}

var currentState = func() *db {
	s := newDb(Deps{})
	s.persist = true
	return s
}()

// StartDb starts the database for this mind (the Mind-state). It blocks until the database is ready to use.
func StartDb(terminate chan struct{}, wg *sync.WaitGroup, deps Deps) {
	if !mossgarden.RegisterMind([]int64{645002, 645004, 645006, 645008, 645010}, "stones", "stones") {
		mossgarden.LogCLI("Could not register Stones Mind", 0)
	}
	currentState.configure(deps)
	ready := make(chan struct{})
	go start(terminate, wg, ready)
	<-ready
	mossgarden.LogCLI("Stones Mind has started", 4)
}

func start(terminate chan struct{}, wg *sync.WaitGroup, ready chan struct{}) {
	wg.Add(1)
	if c, ok := database.Open("stones", "current"); ok {
		currentState.restoreFromDisk(c)
	}
	close(ready)
	<-terminate
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.takeSnapshot()
	wg.Done()
	mossgarden.LogCLI("Stones Mind has shut down", 4)
}

func (s *db) restoreFromDisk(f *os.File) {
	s.mutex.Lock()
	err := json.NewDecoder(f).Decode(&s.data)
	if err != nil && err.Error() != "EOF" {
		mossgarden.LogCLI(err.Error(), 0)
	}
	s.mutex.Unlock()
	if err := f.Close(); err != nil {
		mossgarden.LogCLI(err.Error(), 1)
	}
}

// takeSnapshot hashes the current state and, for the running Mind, stores it. Caller holds the store mutex.
func (s *db) takeSnapshot() mossgarden.HashSeq {
	hs := hashSeq(s.data)
	if !s.persist || len(mossgarden.MakeOrGetConfig().GetString("rootDir")) == 0 {
		return hs
	}
	b, err := json.MarshalIndent(s.data, "", " ")
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return hs
	}
	for _, name := range []string{hs.Hash, "current"} {
		if err := database.Write("stones", name, b); err != nil {
			mossgarden.LogCLI(err.Error(), 2)
		}
	}
	return hs
}

func hashSeq(m map[mossgarden.S256Hash]Stone) (hs mossgarden.HashSeq) {
	hs.Mind = "stones"
	var ids []mossgarden.S256Hash
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := m[id]
		hs.Sequence += st.Sequence
		toHash := []interface{}{
			st.ID, uint8(st.Type), st.GenomeID, st.GenesisID, st.Creator, st.Owner,
			st.Location.Latitude, st.Location.Longitude, uint8(st.State), uint8(st.LockedFrom),
			st.MossLevel, st.ActivationCost, st.LastHarvestTime, st.ActivatedAt, st.SporesSent,
		}
		for _, r := range st.Reviews {
			toHash = append(toHash, r.Reviewer, r.Rating, r.Comment, r.CreatedAt)
		}
		for _, sp := range st.Spores {
			toHash = append(toHash, sp.SourceID, sp.SourceGenomeID, sp.Sender, sp.SentAt)
		}
		for _, d := range toHash {
			if err := hs.AppendData(d); err != nil {
				mossgarden.LogCLI(err.Error(), 1)
			}
		}
	}
	hs.S256()
	hs.CreatedAt = time.Now().Unix()
	return
}

func (s *db) stoneLock(id mossgarden.S256Hash) *deadlock.Mutex {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &deadlock.Mutex{}
		s.locks[id] = l
	}
	return l
}

// lockPair takes two stone locks in a fixed order and returns the function that releases them.
func (s *db) lockPair(a, b mossgarden.S256Hash) func() {
	if a > b {
		a, b = b, a
	}
	first, second := s.stoneLock(a), s.stoneLock(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}

func (s *db) get(id mossgarden.S256Hash) (Stone, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	st, ok := s.data[id]
	if !ok {
		return Stone{}, false
	}
	return st.clone(), true
}

func (s *db) deps() (*Machine, GenomeLookup, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.machine == nil {
		return nil, nil, ErrNotStarted
	}
	return s.machine, s.genomes, nil
}

type change struct {
	before *Stone
	after  Stone
}

// commit writes the changed stones, then logs and publishes. Caller holds the stone locks.
func (s *db) commit(events []mossgarden.DomainEvent, changes ...change) {
	s.mutex.Lock()
	for _, c := range changes {
		s.data[c.after.ID] = c.after
	}
	s.takeSnapshot()
	sink := s.sink
	s.mutex.Unlock()
	for _, c := range changes {
		audit(c)
	}
	if sink != nil {
		for _, e := range events {
			sink.Publish(e)
		}
	}
}

func audit(c change) {
	var before []byte
	if c.before != nil {
		b, err := json.Marshal(c.before)
		if err != nil {
			mossgarden.LogCLI(err.Error(), 1)
		}
		before = b
	}
	after, err := json.Marshal(c.after)
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
	}
	mossgarden.LogMind(mossgarden.MindLog{
		MindName: "stones",
		Comment:  mossgarden.PatchText(before, after),
		Message:  c.after.ID,
	})
}

// mutate runs fn on a copy of the stone while holding its lock and commits the copy if fn succeeds.
func (s *db) mutate(id mossgarden.S256Hash, fn func(stone *Stone) ([]mossgarden.DomainEvent, error)) (Stone, error) {
	l := s.stoneLock(id)
	l.Lock()
	defer l.Unlock()
	before, ok := s.get(id)
	if !ok {
		return Stone{}, ErrStoneNotFound
	}
	after := before.clone()
	events, err := fn(&after)
	if err != nil {
		return before, err
	}
	s.commit(events, change{before: &before, after: after})
	return after, nil
}

func (s *db) registerGenesis(id, genomeID mossgarden.S256Hash, creator, owner mossgarden.Account, location geo.Location, activationCost uint64, now int64) (Stone, error) {
	if len(id) == 0 || len(creator) == 0 || !location.Valid() {
		return Stone{}, ErrInvalidParameters
	}
	if len(owner) == 0 {
		owner = creator
	}
	_, lookup, err := s.deps()
	if err != nil {
		return Stone{}, err
	}
	genome, ok := lookup(genomeID)
	if !ok {
		return Stone{}, ErrGenomeNotFound
	}
	if genome.Owner != creator {
		return Stone{}, ErrUnauthorized
	}
	if !genomes.WithinTerritory(location, genome) {
		return Stone{}, ErrLocationOutOfBounds
	}
	l := s.stoneLock(id)
	l.Lock()
	defer l.Unlock()
	if _, exists := s.get(id); exists {
		return Stone{}, ErrAlreadyExists
	}
	stone := Stone{
		ID:             id,
		Type:           Genesis,
		GenomeID:       genomeID,
		Creator:        creator,
		Owner:          owner,
		Location:       location,
		State:          Created,
		ActivationCost: activationCost,
		CreatedAt:      now,
		Sequence:       1,
	}
	s.commit([]mossgarden.DomainEvent{created(stone)}, change{after: stone})
	return stone, nil
}

func (s *db) mintAstral(id, genesisID mossgarden.S256Hash, buyer mossgarden.Account, location geo.Location, now int64) (Stone, error) {
	if len(id) == 0 || len(buyer) == 0 || id == genesisID || !location.Valid() {
		return Stone{}, ErrInvalidParameters
	}
	machine, lookup, err := s.deps()
	if err != nil {
		return Stone{}, err
	}
	unlock := s.lockPair(id, genesisID)
	defer unlock()
	genesis, ok := s.get(genesisID)
	if !ok {
		return Stone{}, ErrStoneNotFound
	}
	if genesis.Type != Genesis {
		return Stone{}, ErrNotGenesis
	}
	if genesis.State == Locked {
		return Stone{}, ErrInvalidState
	}
	genome, ok := lookup(genesis.GenomeID)
	if !ok {
		return Stone{}, ErrGenomeNotFound
	}
	if !genomes.WithinTerritory(location, genome) {
		return Stone{}, ErrLocationOutOfBounds
	}
	if _, exists := s.get(id); exists {
		return Stone{}, ErrAlreadyExists
	}
	price := genesis.ActivationCost
	tax := mossgarden.MulDivFloor(price, uint64(genome.TaxPermille), 1000)
	if tax > price {
		tax = price
	}
	if price > 0 {
		payouts := map[mossgarden.Account]uint64{genome.Owner: tax}
		payouts[genesis.Owner] += price - tax
		if err := settle(machine.Ledger, buyer, price, payouts); err != nil {
			return Stone{}, ErrPaymentFailed.Wrap(err)
		}
	}
	astral := Stone{
		ID:             id,
		Type:           Astral,
		GenomeID:       genesis.GenomeID,
		GenesisID:      genesisID,
		Creator:        buyer,
		Owner:          buyer,
		Location:       location,
		State:          Created,
		ActivationCost: price,
		CreatedAt:      now,
		Sequence:       1,
	}
	events := []mossgarden.DomainEvent{
		AstralMinted{
			GenesisID:     genesisID,
			AstralID:      id,
			Buyer:         buyer,
			PaymentAmount: price,
			TaxAmount:     tax,
			Timestamp:     now,
		},
		created(astral),
	}
	s.commit(events, change{after: astral})
	return astral, nil
}

// settle charges buyer price and, when the ledger can, pays out the proceeds in the same step.
func settle(l PaymentLedger, buyer mossgarden.Account, price uint64, payouts map[mossgarden.Account]uint64) error {
	if settler, ok := l.(Settler); ok {
		return settler.Settle(buyer, price, payouts)
	}
	return l.Charge(buyer, price)
}

func created(st Stone) StoneCreated {
	return StoneCreated{
		StoneID:        st.ID,
		StoneType:      st.Type.String(),
		GenomeID:       st.GenomeID,
		GenesisID:      st.GenesisID,
		Creator:        st.Creator,
		Owner:          st.Owner,
		Latitude:       st.Location.Latitude,
		Longitude:      st.Location.Longitude,
		ActivationCost: st.ActivationCost,
		Timestamp:      st.CreatedAt,
	}
}

func (s *db) activate(id mossgarden.S256Hash, req ActivationRequest) (Stone, error) {
	machine, _, err := s.deps()
	if err != nil {
		return Stone{}, err
	}
	return s.mutate(id, func(stone *Stone) ([]mossgarden.DomainEvent, error) {
		return machine.Activate(stone, req)
	})
}

func (s *db) harvest(id mossgarden.S256Hash, caller mossgarden.Account, env EnvData, now int64) (Stone, error) {
	machine, _, err := s.deps()
	if err != nil {
		return Stone{}, err
	}
	return s.mutate(id, func(stone *Stone) ([]mossgarden.DomainEvent, error) {
		if stone.Owner != caller {
			return nil, ErrUnauthorized
		}
		bonus := machine.Policy.MaxSpores
		if len(stone.Spores) < int(bonus) {
			bonus = uint8(len(stone.Spores))
		}
		return machine.GrowAndHarvest(stone, now, bonus, env)
	})
}

func (s *db) sendSpore(sourceID, targetID mossgarden.S256Hash, sender mossgarden.Account, now int64) error {
	if len(sourceID) == 0 || sourceID == targetID {
		return ErrInvalidParameters
	}
	machine, _, err := s.deps()
	if err != nil {
		return err
	}
	unlock := s.lockPair(sourceID, targetID)
	defer unlock()
	source, ok := s.get(sourceID)
	if !ok {
		return ErrStoneNotFound
	}
	target, ok := s.get(targetID)
	if !ok {
		return ErrStoneNotFound
	}
	if source.Owner != sender {
		return ErrUnauthorized
	}
	if !source.State.Activated() {
		return ErrInvalidState
	}
	if source.MossLevel < machine.Policy.SporeMinMoss {
		return ErrMossTooYoung
	}
	if source.SporesSent >= machine.Policy.MaxSpores {
		return ErrMaxSporesReached
	}
	if target.State == Locked {
		return ErrInvalidState
	}
	for _, sp := range target.Spores {
		if sp.SourceGenomeID == source.GenomeID {
			return ErrDuplicateSpore
		}
	}
	newSource, newTarget := source.clone(), target.clone()
	newSource.SporesSent++
	newSource.Sequence++
	newTarget.Spores = append(newTarget.Spores, Spore{
		SourceID:       sourceID,
		SourceGenomeID: source.GenomeID,
		Sender:         sender,
		SentAt:         now,
	})
	newTarget.Sequence++
	s.commit(
		[]mossgarden.DomainEvent{SporeSent{SourceID: sourceID, TargetID: targetID, Sender: sender, Timestamp: now}},
		change{before: &source, after: newSource},
		change{before: &target, after: newTarget},
	)
	return nil
}

func (s *db) lock(id mossgarden.S256Hash, now int64) (Stone, error) {
	return s.mutate(id, func(stone *Stone) ([]mossgarden.DomainEvent, error) {
		if stone.State == Locked {
			return nil, ErrInvalidState
		}
		previous := stone.State
		stone.LockedFrom = previous
		stone.State = Locked
		stone.Sequence++
		return []mossgarden.DomainEvent{StoneLocked{StoneID: stone.ID, Previous: previous.String(), Timestamp: now}}, nil
	})
}

func (s *db) unlock(id mossgarden.S256Hash, now int64) (Stone, error) {
	return s.mutate(id, func(stone *Stone) ([]mossgarden.DomainEvent, error) {
		if stone.State != Locked {
			return nil, ErrInvalidState
		}
		stone.State = stone.LockedFrom
		stone.LockedFrom = Created
		stone.Sequence++
		return []mossgarden.DomainEvent{StoneUnlocked{StoneID: stone.ID, Restored: stone.State.String(), Timestamp: now}}, nil
	})
}

func (s *db) all() (stones []Stone) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, st := range s.data {
		stones = append(stones, st.clone())
	}
	sort.Slice(stones, func(i, j int) bool {
		if stones[i].CreatedAt == stones[j].CreatedAt {
			return stones[i].ID < stones[j].ID
		}
		return stones[i].CreatedAt < stones[j].CreatedAt
	})
	return
}

func (s *db) now() int64 {
	machine, _, err := s.deps()
	if err != nil {
		return time.Now().Unix()
	}
	return machine.now()
}

func RegisterGenesis(id, genomeID mossgarden.S256Hash, creator, owner mossgarden.Account, location geo.Location, activationCost uint64, now int64) (Stone, error) {
	return currentState.registerGenesis(id, genomeID, creator, owner, location, activationCost, now)
}

func MintAstral(id, genesisID mossgarden.S256Hash, buyer mossgarden.Account, location geo.Location, now int64) (Stone, error) {
	return currentState.mintAstral(id, genesisID, buyer, location, now)
}

func Activate(id mossgarden.S256Hash, req ActivationRequest) (Stone, error) {
	return currentState.activate(id, req)
}

func Harvest(id mossgarden.S256Hash, caller mossgarden.Account, env EnvData) (Stone, error) {
	return currentState.harvest(id, caller, env, currentState.now())
}

func SendSpore(sourceID, targetID mossgarden.S256Hash, sender mossgarden.Account) error {
	return currentState.sendSpore(sourceID, targetID, sender, currentState.now())
}

// Lock freezes a stone. It is an administrative action and is not reachable from events.
func Lock(id mossgarden.S256Hash) (Stone, error) {
	return currentState.lock(id, currentState.now())
}

// Unlock restores the state a stone had when it was locked.
func Unlock(id mossgarden.S256Hash) (Stone, error) {
	return currentState.unlock(id, currentState.now())
}

func Get(id mossgarden.S256Hash) (Stone, bool) {
	return currentState.get(id)
}

func All() []Stone {
	return currentState.all()
}

func HashOfCurrentState() mossgarden.S256Hash {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	return hashSeq(currentState.data).Hash
}
