package relayer

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// logLevelEphemeralError picks between log.Warn and log.Error for a
// recurring transient failure: the first time a given error kind is seen
// it (and any repeat within window) logs at Warn; once it has persisted
// past window it escalates to Error. Adapted from the teacher's
// util.LogLevelEphemeralError, generalized from a single error-substring
// match to any ErrRPCTransient-wrapped failure, since every RPC call site
// in this package already classifies its errors that way.
func logLevelEphemeralError(err error, window time.Duration, firstSeen *time.Time) func(string, ...interface{}) {
	if !strings.Contains(err.Error(), ErrRPCTransient.Error()) {
		*firstSeen = time.Time{}
		return log.Error
	}
	if firstSeen.IsZero() {
		*firstSeen = time.Now()
		return log.Warn
	}
	if time.Since(*firstSeen) < window {
		return log.Warn
	}
	return log.Error
}
