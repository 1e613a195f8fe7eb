package contracts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/afyachain/medledger/ledgererr"
	"github.com/afyachain/medledger/policy"
)

// callerID returns the invoking client's identity string
func callerID(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %v", err)
	}
	return id, nil
}

// txTime returns the transaction timestamp supplied by the hosting
// environment. Contract code never reads the wall clock directly;
// endorsers must all observe the same time.
func txTime(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %v", err)
	}
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC(), nil
}

// putJSON marshals a value and writes it to the world state
func putJSON(ctx contractapi.TransactionContextInterface, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %v", key, err)
	}
	if err := ctx.GetStub().PutState(key, data); err != nil {
		return fmt.Errorf("failed to put %s to world state: %v", key, err)
	}
	return nil
}

// getJSON reads a world-state entry into out, reporting whether the
// key exists
func getJSON(ctx contractapi.TransactionContextInterface, key string, out interface{}) (bool, error) {
	data, err := ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %v", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %v", key, err)
	}
	return true, nil
}

// nextSeq increments the counter stored at key and returns the new
// value. Counters back the ordered indexes and the global totals.
func nextSeq(ctx contractapi.TransactionContextInterface, key string) (int, error) {
	data, err := ctx.GetStub().GetState(key)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %v", key, err)
	}

	seq := 0
	if data != nil {
		seq, err = strconv.Atoi(string(data))
		if err != nil {
			return 0, fmt.Errorf("failed to parse counter %s: %v", key, err)
		}
	}
	seq++

	if err := ctx.GetStub().PutState(key, []byte(strconv.Itoa(seq))); err != nil {
		return 0, fmt.Errorf("failed to put counter %s: %v", key, err)
	}
	return seq, nil
}

// readCounter returns the counter at key, zero when unset
func readCounter(ctx contractapi.TransactionContextInterface, key string) (int, error) {
	data, err := ctx.GetStub().GetState(key)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %v", key, err)
	}
	if data == nil {
		return 0, nil
	}
	seq, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("failed to parse counter %s: %v", key, err)
	}
	return seq, nil
}

// emitEvent emits the single audit event of a state-changing or
// record-accessing operation. An emission failure fails the operation,
// which aborts the transaction's writes with it.
func emitEvent(ctx contractapi.TransactionContextInterface, name, eventType string, fields map[string]interface{}, now time.Time) error {
	event := map[string]interface{}{
		"eventType": eventType,
		"timestamp": now.Format(time.RFC3339),
	}
	for k, v := range fields {
		event[k] = v
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %v", name, err)
	}
	if err := ctx.GetStub().SetEvent(name, eventJSON); err != nil {
		return fmt.Errorf("failed to emit %s event: %v", name, err)
	}
	return nil
}

// requireOwner fails unless caller is the current ledger owner
func requireOwner(ctx contractapi.TransactionContextInterface, p policy.Policy, caller string) error {
	ok, err := p.IsOwner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ledgererr.New(ledgererr.CodeNotAuthorized, "caller is not the ledger owner")
	}
	return nil
}
