package integration

import (
	"math/rand"
	"time"

	"github.com/divotmaker/flighthook/internal/config"
)

// randomClubFixture is the "random_club" supplemented fixture (SPEC_FULL.md
// §3): it periodically synthesizes a club selection, exercising the same
// set_club_info path a real simulator integration would drive, without
// needing a simulator on the other end of a socket.
type randomClubFixture struct {
	rng      *rand.Rand
	next     time.Time
	interval time.Duration
}

var fixtureClubs = []string{"DR", "3W", "5I", "7I", "PW", "SW", "PT"}

func newRandomClubFixture(spec config.IntegrationSpec) *randomClubFixture {
	if spec.RandomClub == nil {
		return nil
	}
	return &randomClubFixture{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		next:     time.Now().Add(5 * time.Second),
		interval: 5 * time.Second,
	}
}

// tick returns a freshly chosen club once per interval, else (_, false).
func (f *randomClubFixture) tick() (string, bool) {
	if time.Now().Before(f.next) {
		return "", false
	}
	f.next = time.Now().Add(f.interval)
	return fixtureClubs[f.rng.Intn(len(fixtureClubs))], true
}
