package testutil

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

const (
	compositeKeyNamespace = "\x00"
	emptyKeySubstitute    = "\x01"
	fakeNamespace         = "medledger"
	fakeChannel           = "medchannel"
)

// Stub implements the chaincode stub against the fake ledger. One stub
// per transaction; writes land in the shared ledger immediately, the
// way contracts observe their own writes on a peer.
type Stub struct {
	ledger *Ledger
	txID   string
	ts     time.Time
}

var _ shim.ChaincodeStubInterface = (*Stub)(nil)

var errNotSupported = fmt.Errorf("not supported by the fake ledger")

// GetTxID returns the transaction id
func (s *Stub) GetTxID() string {
	return s.txID
}

// GetChannelID returns the fixed test channel
func (s *Stub) GetChannelID() string {
	return fakeChannel
}

// GetTxTimestamp returns the transaction's fixed timestamp
func (s *Stub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	return protoTimestamp(s.ts), nil
}

// GetState returns the value stored under key, nil when absent
func (s *Stub) GetState(key string) ([]byte, error) {
	value, ok := s.ledger.state[key]
	if !ok {
		return nil, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

// PutState writes a value and records the key's history entry
func (s *Stub) PutState(key string, value []byte) error {
	if s.ledger.PutErrPrefix != "" && strings.HasPrefix(key, s.ledger.PutErrPrefix) {
		return fmt.Errorf("injected write failure for key %q", key)
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	s.ledger.state[key] = copied
	s.ledger.history[key] = append(s.ledger.history[key], histEntry{
		txID:  s.txID,
		value: copied,
		ts:    s.ts,
	})
	return nil
}

// DelState removes a key and records a delete history entry
func (s *Stub) DelState(key string) error {
	delete(s.ledger.state, key)
	s.ledger.history[key] = append(s.ledger.history[key], histEntry{
		txID:     s.txID,
		ts:       s.ts,
		isDelete: true,
	})
	return nil
}

// SetEvent captures the transaction's event. Like the peer, only the
// last event set within one transaction survives.
func (s *Stub) SetEvent(name string, payload []byte) error {
	if s.ledger.EventErr != nil {
		return s.ledger.EventErr
	}
	event := Event{TxID: s.txID, Name: name, Payload: payload}
	if n := len(s.ledger.events); n > 0 && s.ledger.events[n-1].TxID == s.txID {
		s.ledger.events[n-1] = event
		return nil
	}
	s.ledger.events = append(s.ledger.events, event)
	return nil
}

// CreateCompositeKey builds a key in the composite namespace, matching
// the peer's encoding
func (s *Stub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	ck := compositeKeyNamespace + objectType + string(rune(0))
	for _, attr := range attributes {
		ck += attr + string(rune(0))
	}
	return ck, nil
}

// SplitCompositeKey decomposes a composite key into its object type and
// attributes
func (s *Stub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	componentIndex := 1
	components := []string{}
	for i := 1; i < len(compositeKey); i++ {
		if compositeKey[i] == 0 {
			components = append(components, compositeKey[componentIndex:i])
			componentIndex = i + 1
		}
	}
	if len(components) == 0 {
		return "", nil, fmt.Errorf("invalid composite key: %q", compositeKey)
	}
	return components[0], components[1:], nil
}

// GetStateByRange returns an iterator over [startKey, endKey) in
// lexical order. Composite keys are excluded, as on the peer.
func (s *Stub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	if startKey == "" {
		startKey = emptyKeySubstitute
	}
	if strings.HasPrefix(startKey, compositeKeyNamespace) || strings.HasPrefix(endKey, compositeKeyNamespace) {
		return nil, fmt.Errorf("range queries must not span the composite key namespace")
	}
	return s.rangeIterator(startKey, endKey), nil
}

// GetStateByPartialCompositeKey returns an iterator over every
// composite key whose leading attributes match, in lexical order
func (s *Stub) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	partial, err := s.CreateCompositeKey(objectType, keys)
	if err != nil {
		return nil, err
	}
	return s.rangeIterator(partial, partial+string(utf8.MaxRune)), nil
}

func (s *Stub) rangeIterator(startKey, endKey string) *stateIterator {
	matched := []string{}
	for key := range s.ledger.state {
		if key >= startKey && (endKey == "" || key < endKey) {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)
	return &stateIterator{stub: s, keys: matched}
}

// GetHistoryForKey returns the key's modifications, newest first
func (s *Stub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	entries := s.ledger.history[key]
	mods := make([]*queryresult.KeyModification, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		mods = append(mods, &queryresult.KeyModification{
			TxId:      entry.txID,
			Value:     entry.value,
			Timestamp: protoTimestamp(entry.ts),
			IsDelete:  entry.isDelete,
		})
	}
	return &historyIterator{mods: mods}, nil
}

// GetArgs returns no invocation arguments; contracts under test are
// called directly
func (s *Stub) GetArgs() [][]byte {
	return nil
}

// GetStringArgs returns no invocation arguments
func (s *Stub) GetStringArgs() []string {
	return nil
}

// GetFunctionAndParameters returns empty invocation data
func (s *Stub) GetFunctionAndParameters() (string, []string) {
	return "", nil
}

// GetArgsSlice is not used by direct method calls
func (s *Stub) GetArgsSlice() ([]byte, error) {
	return nil, errNotSupported
}

// InvokeChaincode is not supported by the fake ledger
func (s *Stub) InvokeChaincode(chaincodeName string, args [][]byte, channel string) pb.Response {
	return shim.Error(errNotSupported.Error())
}

// SetStateValidationParameter is not supported by the fake ledger
func (s *Stub) SetStateValidationParameter(key string, ep []byte) error {
	return errNotSupported
}

// GetStateValidationParameter is not supported by the fake ledger
func (s *Stub) GetStateValidationParameter(key string) ([]byte, error) {
	return nil, errNotSupported
}

// GetStateByRangeWithPagination is not supported by the fake ledger
func (s *Stub) GetStateByRangeWithPagination(startKey, endKey string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, errNotSupported
}

// GetStateByPartialCompositeKeyWithPagination is not supported by the
// fake ledger
func (s *Stub) GetStateByPartialCompositeKeyWithPagination(objectType string, keys []string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, errNotSupported
}

// GetQueryResult is not supported; contracts avoid rich queries so
// state stays portable across state databases
func (s *Stub) GetQueryResult(query string) (shim.StateQueryIteratorInterface, error) {
	return nil, errNotSupported
}

// GetQueryResultWithPagination is not supported by the fake ledger
func (s *Stub) GetQueryResultWithPagination(query string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, errNotSupported
}

// GetPrivateData is not supported by the fake ledger
func (s *Stub) GetPrivateData(collection, key string) ([]byte, error) {
	return nil, errNotSupported
}

// GetPrivateDataHash is not supported by the fake ledger
func (s *Stub) GetPrivateDataHash(collection, key string) ([]byte, error) {
	return nil, errNotSupported
}

// PutPrivateData is not supported by the fake ledger
func (s *Stub) PutPrivateData(collection string, key string, value []byte) error {
	return errNotSupported
}

// DelPrivateData is not supported by the fake ledger
func (s *Stub) DelPrivateData(collection, key string) error {
	return errNotSupported
}

// PurgePrivateData is not supported by the fake ledger
func (s *Stub) PurgePrivateData(collection, key string) error {
	return errNotSupported
}

// SetPrivateDataValidationParameter is not supported by the fake ledger
func (s *Stub) SetPrivateDataValidationParameter(collection, key string, ep []byte) error {
	return errNotSupported
}

// GetPrivateDataValidationParameter is not supported by the fake ledger
func (s *Stub) GetPrivateDataValidationParameter(collection, key string) ([]byte, error) {
	return nil, errNotSupported
}

// GetPrivateDataByRange is not supported by the fake ledger
func (s *Stub) GetPrivateDataByRange(collection, startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	return nil, errNotSupported
}

// GetPrivateDataByPartialCompositeKey is not supported by the fake
// ledger
func (s *Stub) GetPrivateDataByPartialCompositeKey(collection, objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	return nil, errNotSupported
}

// GetPrivateDataQueryResult is not supported by the fake ledger
func (s *Stub) GetPrivateDataQueryResult(collection, query string) (shim.StateQueryIteratorInterface, error) {
	return nil, errNotSupported
}

// GetCreator is not supported; identities come from the fake client
// identity
func (s *Stub) GetCreator() ([]byte, error) {
	return nil, errNotSupported
}

// GetTransient returns no transient data
func (s *Stub) GetTransient() (map[string][]byte, error) {
	return map[string][]byte{}, nil
}

// GetBinding is not supported by the fake ledger
func (s *Stub) GetBinding() ([]byte, error) {
	return nil, errNotSupported
}

// GetDecorations returns no decorations
func (s *Stub) GetDecorations() map[string][]byte {
	return map[string][]byte{}
}

// GetSignedProposal is not supported by the fake ledger
func (s *Stub) GetSignedProposal() (*pb.SignedProposal, error) {
	return nil, errNotSupported
}

// stateIterator walks a sorted snapshot of matching keys
type stateIterator struct {
	stub *Stub
	keys []string
	pos  int
}

var _ shim.StateQueryIteratorInterface = (*stateIterator)(nil)

// HasNext reports whether entries remain
func (it *stateIterator) HasNext() bool {
	return it.pos < len(it.keys)
}

// Next returns the next key-value pair
func (it *stateIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("no more entries")
	}
	key := it.keys[it.pos]
	it.pos++
	return &queryresult.KV{
		Namespace: fakeNamespace,
		Key:       key,
		Value:     it.stub.ledger.state[key],
	}, nil
}

// Close releases the iterator
func (it *stateIterator) Close() error {
	return nil
}

// historyIterator walks a key's modifications newest first
type historyIterator struct {
	mods []*queryresult.KeyModification
	pos  int
}

var _ shim.HistoryQueryIteratorInterface = (*historyIterator)(nil)

// HasNext reports whether modifications remain
func (it *historyIterator) HasNext() bool {
	return it.pos < len(it.mods)
}

// Next returns the next modification
func (it *historyIterator) Next() (*queryresult.KeyModification, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("no more entries")
	}
	mod := it.mods[it.pos]
	it.pos++
	return mod, nil
}

// Close releases the iterator
func (it *historyIterator) Close() error {
	return nil
}
