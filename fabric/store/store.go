// Package store implements the generation and soft-delete primitives of
// spec.md §4.7 (component C7) on top of NATS JetStream Key-Value buckets.
//
// Every row is stored as a JSON document under its id; every row's KV
// revision doubles as its generation token. This is the same idiom
// hive/handlers/ec2/vpc/service_impl.go's nextVNI and ipam.go's AllocateIP
// already use (Get, mutate, Update-with-revision, retry on CAS conflict) —
// store.go lifts it out of one-off handler code into reusable building
// blocks: Get, Put, CASUpdate and TryCreateUnique. fabric/vpcstore composes
// them into the conditional soft-delete (CASUpdate with TimeDeleted set)
// and collection-insert (Put plus a CASUpdate bump of the parent) patterns
// of spec.md §4.7; there are no functions of those names here.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Bucket wraps a single JetStream KV bucket with JSON (de)serialization.
type Bucket struct {
	KV nats.KeyValue
}

// OpenBucket creates the named bucket if absent, or attaches to it if it
// already exists — mirrors hive/handlers/ec2/vpc/service_impl.go's
// getOrCreateKVBucket.
func OpenBucket(js nats.JetStreamContext, name string, history uint8) (*Bucket, error) {
	kv, err := js.CreateKeyValue(&nats.KeyValueConfig{Bucket: name, History: history})
	if err != nil {
		kv, err = js.KeyValue(name)
		if err != nil {
			return nil, fmt.Errorf("open bucket %s: %w", name, err)
		}
	}
	return &Bucket{KV: kv}, nil
}

// Get loads and decodes the row at key, returning its current revision.
func Get[T any](b *Bucket, key string) (*T, uint64, error) {
	entry, err := b.KV.Get(key)
	if err != nil {
		return nil, 0, err
	}
	var row T
	if err := json.Unmarshal(entry.Value(), &row); err != nil {
		return nil, 0, fmt.Errorf("decode %s/%s: %w", bucketName(b), key, err)
	}
	return &row, entry.Revision(), nil
}

// Put writes row unconditionally (create-or-overwrite) and returns the new
// revision. Used for the first write of a row that has no uniqueness
// requirement of its own (the parent-side insert already serialized on a
// unique index via TryCreateUnique).
func Put[T any](b *Bucket, key string, row *T) (uint64, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return 0, fmt.Errorf("encode %s/%s: %w", bucketName(b), key, err)
	}
	return b.KV.Put(key, data)
}

// CASUpdate writes row only if the bucket's current revision for key still
// matches revision — the generation-bump half of every C7 primitive.
func CASUpdate[T any](b *Bucket, key string, revision uint64, row *T) (uint64, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return 0, fmt.Errorf("encode %s/%s: %w", bucketName(b), key, err)
	}
	return b.KV.Update(key, data, revision)
}

// TryCreateUnique attempts to claim key with value, succeeding only if no
// row currently occupies it. This is the CAS analogue of a partial unique
// index over live rows (spec.md §6): callers use it for the VNI index, the
// (project,name)/(vpc,name) name-uniqueness indexes, and the
// blueprint-target version index.
func TryCreateUnique(b *Bucket, key string, value []byte) (uint64, error) {
	return b.KV.Create(key, value)
}

// Delete removes a row or index entry outright. vpcstore uses it to undo
// writes when a later step of an operation fails, to release name, slot and
// VNI index entries, and to remove rows that are not soft-deleted (a
// deleted VPC's system router, a replaced firewall rule set).
func Delete(b *Bucket, key string) error {
	return b.KV.Delete(key)
}

// Keys lists every key in the bucket, treating "no keys yet" as an empty
// list rather than an error (mirrors every Describe* in the teacher).
func Keys(b *Bucket) ([]string, error) {
	keys, err := b.KV.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	return keys, nil
}

// LiveRow is satisfied by any row embedding model.Timestamps.
type LiveRow interface {
	Live() bool
}

// ListLive decodes every row in the bucket and returns only the live ones.
func ListLive[T LiveRow](b *Bucket) ([]T, error) {
	keys, err := Keys(b)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		row, _, err := Get[T](b, key)
		if err != nil {
			continue // best-effort: a row deleted between Keys() and Get() is simply absent
		}
		if (*row).Live() {
			out = append(out, *row)
		}
	}
	return out, nil
}

func bucketName(b *Bucket) string {
	if b == nil || b.KV == nil {
		return "<nil>"
	}
	return b.KV.Bucket()
}
