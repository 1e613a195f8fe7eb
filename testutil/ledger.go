// Package testutil provides an in-memory stand-in for the peer so
// contract logic can be exercised without a Fabric network. The fake
// reproduces the state semantics contracts depend on: composite-key
// encoding, lexically ordered range scans, per-key history and
// one-event-per-transaction.
package testutil

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Event is a chaincode event captured by the fake ledger
type Event struct {
	TxID    string
	Name    string
	Payload []byte
}

// Ledger holds world state shared across transactions. Each As call
// opens a fresh transaction with its own id and a strictly later
// timestamp.
//
// PutErrPrefix and EventErr inject failures: writes to keys with the
// prefix, or event emission, fail until the field is cleared.
type Ledger struct {
	PutErrPrefix string
	EventErr     error

	state   map[string][]byte
	history map[string][]histEntry
	events  []Event
	txSeq   int
	now     time.Time
}

type histEntry struct {
	txID     string
	value    []byte
	ts       time.Time
	isDelete bool
}

// NewLedger creates an empty ledger with a fixed starting clock
func NewLedger() *Ledger {
	return &Ledger{
		state:   map[string][]byte{},
		history: map[string][]histEntry{},
		now:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// As opens a new transaction submitted by the given identity
func (l *Ledger) As(identity string) *Context {
	l.txSeq++
	l.now = l.now.Add(time.Second)
	return &Context{
		stub: &Stub{
			ledger: l,
			txID:   fmt.Sprintf("tx%06d", l.txSeq),
			ts:     l.now,
		},
		identity: &Identity{ID: identity},
	}
}

// Has reports whether a key exists in world state
func (l *Ledger) Has(key string) bool {
	_, ok := l.state[key]
	return ok
}

// Raw returns the stored bytes for a key, nil when absent
func (l *Ledger) Raw(key string) []byte {
	return l.state[key]
}

// Events returns every captured event in commit order
func (l *Ledger) Events() []Event {
	return l.events
}

// LastEvent returns the most recently committed event, nil when none
func (l *Ledger) LastEvent() *Event {
	if len(l.events) == 0 {
		return nil
	}
	return &l.events[len(l.events)-1]
}

// EventCount returns how many events have been committed
func (l *Ledger) EventCount() int {
	return len(l.events)
}

// Context satisfies the transaction context the contracts receive
type Context struct {
	stub     *Stub
	identity *Identity
}

var _ contractapi.TransactionContextInterface = (*Context)(nil)

// GetStub returns the transaction's stub
func (c *Context) GetStub() shim.ChaincodeStubInterface {
	return c.stub
}

// GetClientIdentity returns the submitting identity
func (c *Context) GetClientIdentity() cid.ClientIdentity {
	return c.identity
}

// Identity is a fake client identity with a fixed enrollment id
type Identity struct {
	ID    string
	MSPID string
	Attrs map[string]string
}

var _ cid.ClientIdentity = (*Identity)(nil)

// GetID returns the enrollment id
func (id *Identity) GetID() (string, error) {
	return id.ID, nil
}

// GetMSPID returns the identity's MSP, defaulting to a single test org
func (id *Identity) GetMSPID() (string, error) {
	if id.MSPID == "" {
		return "AfyaMSP", nil
	}
	return id.MSPID, nil
}

// GetAttributeValue looks up a certificate attribute
func (id *Identity) GetAttributeValue(attrName string) (string, bool, error) {
	value, found := id.Attrs[attrName]
	return value, found, nil
}

// AssertAttributeValue errors unless the attribute holds the value
func (id *Identity) AssertAttributeValue(attrName, attrValue string) error {
	value, found := id.Attrs[attrName]
	if !found || value != attrValue {
		return fmt.Errorf("attribute %s does not have value %s", attrName, attrValue)
	}
	return nil
}

// GetX509Certificate is not backed by a real certificate in the fake
func (id *Identity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, fmt.Errorf("fake identity carries no certificate")
}

func protoTimestamp(t time.Time) *timestamp.Timestamp {
	return &timestamp.Timestamp{
		Seconds: t.Unix(),
		Nanos:   int32(t.Nanosecond()),
	}
}
