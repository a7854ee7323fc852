package checkout

import (
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// orderIDPrefix precedes the 8 uppercase hex characters of every order code.
const orderIDPrefix = "ORD-"

// ErrIdentifierExhausted is returned when order identifier generation
// collides twice in a row. With 32 random bits per attempt this is
// practically unreachable; the DB uniqueness constraint is the backstop.
var ErrIdentifierExhausted = errors.New("order identifier space exhausted")

// NewOrderID produces a human-readable order code such as "ORD-3FA85F64".
func NewOrderID() string {
	u := uuid.New()
	return orderIDPrefix + strings.ToUpper(hex.EncodeToString(u[:4]))
}
