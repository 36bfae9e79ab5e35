package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference returns BK-YYMMDD-TTTTRRRR: the booking date, the last four
// base36 digits of the millisecond clock and four random characters.
func NewReference(now time.Time) (string, error) {
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(stamp) < 4 {
		stamp = strings.Repeat("0", 4-len(stamp)) + stamp
	}
	stamp = stamp[len(stamp)-4:]

	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate reference: %w", err)
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}

	return fmt.Sprintf("BK-%s-%s%s", now.UTC().Format("060102"), stamp, suffix), nil
}
