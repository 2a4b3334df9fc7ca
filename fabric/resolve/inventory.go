package resolve

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/model"
	"github.com/mulgadc/fabricd/fabric/store"
)

const (
	bucketInstances = "fabricd-instances"
	bucketVmms      = "fabricd-vmms"
	bucketSleds     = "fabricd-sleds"
)

// InventoryStore is the read model ResolveVPCToSleds consults for the
// guest path (spec.md §4.5(a)): Instance, Vmm and Sled rows. These are
// owned elsewhere in a full rack (sled agent heartbeats, the instance
// placement subsystem); fabricd only needs a place to read them, so this
// is a thin unconditional-write KV mirror rather than a full lifecycle
// store like vpcstore.Store.
type InventoryStore struct {
	instances *store.Bucket
	vmms      *store.Bucket
	sleds     *store.Bucket
}

// NewInventoryStore opens the inventory buckets, creating them if absent.
func NewInventoryStore(js nats.JetStreamContext) (*InventoryStore, error) {
	instances, err := store.OpenBucket(js, bucketInstances, 5)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	vmms, err := store.OpenBucket(js, bucketVmms, 5)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	sleds, err := store.OpenBucket(js, bucketSleds, 5)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	return &InventoryStore{instances: instances, vmms: vmms, sleds: sleds}, nil
}

func (inv *InventoryStore) PutInstance(i *model.Instance) error {
	_, err := store.Put(inv.instances, i.ID, i)
	return err
}

func (inv *InventoryStore) PutVmm(v *model.Vmm) error {
	_, err := store.Put(inv.vmms, v.ID, v)
	return err
}

func (inv *InventoryStore) PutSled(s model.Sled) error {
	_, err := store.Put(inv.sleds, s.ID, &s)
	return err
}

func (inv *InventoryStore) Instance(id string) (*model.Instance, error) {
	i, _, err := store.Get[model.Instance](inv.instances, id)
	if err != nil {
		return nil, apierrors.NotFound("instance", id)
	}
	return i, nil
}

func (inv *InventoryStore) Vmm(id string) (*model.Vmm, error) {
	v, _, err := store.Get[model.Vmm](inv.vmms, id)
	if err != nil {
		return nil, apierrors.NotFound("vmm", id)
	}
	return v, nil
}

func (inv *InventoryStore) Sled(id string) (*model.Sled, error) {
	s, _, err := store.Get[model.Sled](inv.sleds, id)
	if err != nil {
		return nil, apierrors.NotFound("sled", id)
	}
	return s, nil
}

func (inv *InventoryStore) Sleds() ([]model.Sled, error) {
	keys, err := store.Keys(inv.sleds)
	if err != nil {
		return nil, err
	}
	out := make([]model.Sled, 0, len(keys))
	for _, k := range keys {
		s, _, err := store.Get[model.Sled](inv.sleds, k)
		if err != nil {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}
