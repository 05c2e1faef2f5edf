package genomes

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"mossgarden/consensus/geo"
	"mossgarden/database"
	"mossgarden/mossgarden"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultMaxRadius      = 100000
	defaultMaxTaxPermille = 250
)

type db struct {
	data  map[mossgarden.S256Hash]Genome
	mutex *deadlock.Mutex
	sink  mossgarden.EventSink
}

func newDb(sink mossgarden.EventSink) *db {
	return &db{
		data:  make(map[mossgarden.S256Hash]Genome),
		mutex: &deadlock.Mutex{},
		sink:  sink,
	}
}

var currentState = newDb(nil)

// StartDb starts the database for this mind (the Mind-state). It blocks until the database is ready to use.
func StartDb(terminate chan struct{}, wg *sync.WaitGroup, sink mossgarden.EventSink) {
	if !mossgarden.RegisterMind([]int64{645000}, "genomes", "genomes") {
		mossgarden.LogCLI("Could not register Genomes Mind", 0)
	}
	currentState.mutex.Lock()
	currentState.sink = sink
	currentState.mutex.Unlock()
	ready := make(chan struct{})
	go start(terminate, wg, ready)
	<-ready
	mossgarden.LogCLI("Genomes Mind has started", 4)
}

func start(terminate chan struct{}, wg *sync.WaitGroup, ready chan struct{}) {
	wg.Add(1)
	if c, ok := database.Open("genomes", "current"); ok {
		currentState.restoreFromDisk(c)
	}
	close(ready)
	<-terminate
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.takeSnapshot()
	wg.Done()
	mossgarden.LogCLI("Genomes Mind has shut down", 4)
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

// takeSnapshot hashes the current state and stores it under its hash and as "current". Caller holds the mutex.
func (s *db) takeSnapshot() mossgarden.HashSeq {
	hs := hashSeq(s.data)
	if len(mossgarden.MakeOrGetConfig().GetString("rootDir")) == 0 {
		return hs
	}
	b, err := json.MarshalIndent(s.data, "", " ")
	if err != nil {
		mossgarden.LogCLI(err.Error(), 1)
		return hs
	}
	for _, name := range []string{hs.Hash, "current"} {
		if err := database.Write("genomes", name, b); err != nil {
			mossgarden.LogCLI(err.Error(), 2)
		}
	}
	return hs
}

func hashSeq(m map[mossgarden.S256Hash]Genome) (hs mossgarden.HashSeq) {
	hs.Mind = "genomes"
	var ids []mossgarden.S256Hash
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		g := m[id]
		hs.Sequence += g.Sequence
		for _, d := range []interface{}{g.ID, g.Owner, g.Center.Latitude, g.Center.Longitude, uint64(g.Radius), uint64(g.TaxPermille), g.CreatedAt} {
			if err := hs.AppendData(d); err != nil {
				mossgarden.LogCLI(err.Error(), 1)
			}
		}
	}
	hs.S256()
	hs.CreatedAt = time.Now().Unix()
	return
}

func limit(key string, fallback int64) int64 {
	if v := mossgarden.MakeOrGetConfig().GetInt64(key); v > 0 {
		return v
	}
	return fallback
}

func (s *db) create(id mossgarden.S256Hash, owner mossgarden.Account, center geo.Location, radius uint32, taxPermille uint16, now int64) (Genome, error) {
	if len(id) == 0 || len(owner) == 0 || !center.Valid() || radius == 0 || int64(radius) > limit("maxGenomeRadius", defaultMaxRadius) {
		return Genome{}, ErrInvalidParameters
	}
	if int64(taxPermille) > limit("maxTaxPermille", defaultMaxTaxPermille) {
		return Genome{}, ErrTaxesTooHigh
	}
	s.mutex.Lock()
	if _, exists := s.data[id]; exists {
		s.mutex.Unlock()
		return Genome{}, ErrAlreadyExists
	}
	g := Genome{
		ID:          id,
		Owner:       owner,
		Center:      center,
		Radius:      radius,
		TaxPermille: taxPermille,
		CreatedAt:   now,
		Sequence:    1,
	}
	s.data[id] = g
	s.takeSnapshot()
	sink := s.sink
	s.mutex.Unlock()

	mossgarden.LogMind(mossgarden.MindLog{MindName: "genomes", Comment: "created genome " + id, Message: g})
	if sink != nil {
		sink.Publish(GenomeCreated{
			GenomeID:        id,
			Owner:           owner,
			CenterLatitude:  center.Latitude,
			CenterLongitude: center.Longitude,
			Radius:          radius,
			TaxPermille:     taxPermille,
		})
	}
	return g, nil
}

func (s *db) get(id mossgarden.S256Hash) (Genome, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	g, ok := s.data[id]
	return g, ok
}

func (s *db) all() (genomes []Genome) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, g := range s.data {
		genomes = append(genomes, g)
	}
	sort.Slice(genomes, func(i, j int) bool {
		if genomes[i].CreatedAt == genomes[j].CreatedAt {
			return genomes[i].ID < genomes[j].ID
		}
		return genomes[i].CreatedAt < genomes[j].CreatedAt
	})
	return
}

// CreateGenome registers a new territory owned by owner.
func CreateGenome(id mossgarden.S256Hash, owner mossgarden.Account, center geo.Location, radius uint32, taxPermille uint16, now int64) (Genome, error) {
	return currentState.create(id, owner, center, radius, taxPermille, now)
}

func Get(id mossgarden.S256Hash) (Genome, bool) {
	return currentState.get(id)
}

func All() []Genome {
	return currentState.all()
}

func HashOfCurrentState() mossgarden.S256Hash {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	return hashSeq(currentState.data).Hash
}

// Describe is a one line summary for the CLI.
func (g Genome) Describe() string {
	return fmt.Sprintf("%s owner:%s center:(%.5f,%.5f) radius:%dm tax:%d‰", g.ID, g.Owner, g.Center.Latitude, g.Center.Longitude, g.Radius, g.TaxPermille)
}
