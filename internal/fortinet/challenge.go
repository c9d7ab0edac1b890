package fortinet

import (
	"math/rand/v2"
	"strconv"
)

const (
	challengeMin = 10_000_000
	challengeMax = 99_000_000

	portalAlphabet = "ABCD"
	grpAlphabet    = "EFGH"
)

// Challenge is one set of correlation tokens binding a 2FA challenge to its
// completion. All five values are generated together and must be echoed back
// unchanged by the client.
type Challenge struct {
	ReqID  string
	PolID  string
	Magic  string
	Portal string
	Grp    string
}

// NewChallenge produces a fresh challenge. Uniqueness across sessions is not
// required; correlation is scoped to a single session.
func NewChallenge() Challenge {
	return Challenge{
		ReqID:  randomID(),
		PolID:  "1-1-" + randomID(),
		Magic:  "1-" + randomID(),
		Portal: randomChoice(portalAlphabet),
		Grp:    randomChoice(grpAlphabet),
	}
}

func randomID() string {
	return strconv.Itoa(challengeMin + rand.IntN(challengeMax-challengeMin+1))
}

func randomChoice(alphabet string) string {
	return string(alphabet[rand.IntN(len(alphabet))])
}
