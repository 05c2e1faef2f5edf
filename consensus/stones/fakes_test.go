package stones

import (
	"errors"
	"math"
	"sync"
	"time"

	"mossgarden/consensus/genomes"
	"mossgarden/consensus/geo"
	"mossgarden/mossgarden"
)

const epoch = int64(1700000000)

type fakeLedger struct {
	mutex     sync.Mutex
	chargeErr error
	mintErr   error
	settleErr error
	charged   map[mossgarden.Account]uint64
	minted    map[mossgarden.Account]uint64
	credited  map[mossgarden.Account]uint64
	charges   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		charged:  make(map[mossgarden.Account]uint64),
		minted:   make(map[mossgarden.Account]uint64),
		credited: make(map[mossgarden.Account]uint64),
	}
}

func (l *fakeLedger) Charge(payer mossgarden.Account, amount uint64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.chargeErr != nil {
		return l.chargeErr
	}
	l.charges++
	l.charged[payer] += amount
	return nil
}

func (l *fakeLedger) Mint(recipient mossgarden.Account, amount uint64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.mintErr != nil {
		return l.mintErr
	}
	l.minted[recipient] += amount
	return nil
}

func (l *fakeLedger) Settle(payer mossgarden.Account, amount uint64, payouts map[mossgarden.Account]uint64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.chargeErr != nil {
		return l.chargeErr
	}
	if l.settleErr != nil {
		return l.settleErr
	}
	l.charges++
	l.charged[payer] += amount
	for recipient, share := range payouts {
		l.credited[recipient] += share
	}
	return nil
}

// chargeOnly is a PaymentLedger that cannot settle payouts.
type chargeOnly struct {
	ledger *fakeLedger
}

func (c chargeOnly) Charge(payer mossgarden.Account, amount uint64) error {
	return c.ledger.Charge(payer, amount)
}

type recordingSink struct {
	mutex  sync.Mutex
	events []mossgarden.DomainEvent
}

func (r *recordingSink) Publish(e mossgarden.DomainEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) kinds() (k []int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, e := range r.events {
		k = append(k, e.EventKind())
	}
	return
}

// payloadDecoder trusts the proof payload without checking a signature.
type payloadDecoder struct{}

func (payloadDecoder) Decode(p geo.Proof) (float64, float64, error) {
	var loc geo.Location
	if err := json.Unmarshal(p.Payload, &loc); err != nil {
		return 0, 0, err
	}
	return loc.Latitude, loc.Longitude, nil
}

type allowOracle string

func (a allowOracle) IsAuthorized(oracle string) bool {
	return oracle == string(a)
}

type clock struct {
	mutex sync.Mutex
	now   int64
}

func (c *clock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return time.Unix(c.now, 0)
}

func (c *clock) advance(seconds int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now += seconds
}

func newMachine(ledger *fakeLedger, c *clock) *Machine {
	v := geo.NewVerifier(payloadDecoder{}, allowOracle("oracle"))
	v.Now = c.Now
	return &Machine{
		Verifier: v,
		Ledger:   ledger,
		Minter:   ledger,
		Policy:   DefaultPolicy(),
		Now:      c.Now,
	}
}

func proofFor(loc geo.Location, timestamp int64) geo.Proof {
	b, _ := json.Marshal(loc)
	return geo.Proof{Oracle: "oracle", Timestamp: timestamp, Payload: b}
}

// north returns the point the given number of meters due north of loc.
func north(loc geo.Location, meters float64) geo.Location {
	return geo.Location{
		Latitude:  loc.Latitude + meters/geo.EarthRadius*180/math.Pi,
		Longitude: loc.Longitude,
	}
}

var home = geo.Location{Latitude: 51.5007, Longitude: -0.1246}

func genesisStone(id mossgarden.S256Hash, cost uint64) Stone {
	return Stone{
		ID:             id,
		Type:           Genesis,
		GenomeID:       "genome",
		Creator:        "creator",
		Owner:          "owner",
		Location:       home,
		State:          Created,
		ActivationCost: cost,
		CreatedAt:      epoch,
		Sequence:       1,
	}
}

type fixture struct {
	db     *db
	ledger *fakeLedger
	sink   *recordingSink
	clock  *clock
	genome genomes.Genome
}

func newFixture() *fixture {
	f := &fixture{
		ledger: newFakeLedger(),
		sink:   &recordingSink{},
		clock:  &clock{now: epoch},
		genome: genomes.Genome{
			ID:          "genome",
			Owner:       "creator",
			Center:      home,
			Radius:      2000,
			TaxPermille: 100,
		},
	}
	f.db = newDb(Deps{
		Machine: newMachine(f.ledger, f.clock),
		Genomes: func(id mossgarden.S256Hash) (genomes.Genome, bool) {
			if id == f.genome.ID {
				return f.genome, true
			}
			return genomes.Genome{}, false
		},
		Sink: f.sink,
	})
	return f
}

func (f *fixture) put(st Stone) {
	f.db.mutex.Lock()
	defer f.db.mutex.Unlock()
	f.db.data[st.ID] = st
}

var errBank = errors.New("bank is closed")
