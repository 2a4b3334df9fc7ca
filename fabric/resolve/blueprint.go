package resolve

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/model"
	"github.com/mulgadc/fabricd/fabric/store"
)

const (
	bucketBlueprints       = "fabricd-blueprints"
	bucketBlueprintTargets = "fabricd-blueprint-targets" // key: zero-padded version
)

// BlueprintReader is what the resolver needs from blueprint storage. A
// narrow interface so tests can supply a fixed target without standing up
// JetStream.
type BlueprintReader interface {
	CurrentTarget() (*model.BlueprintTarget, *model.Blueprint, error)
}

// BlueprintStore is the JetStream-backed BlueprintReader. The row with the
// highest Version is the current target (spec.md §3); versions are claimed
// through TryCreateUnique so two concurrent SetTarget calls can never both
// believe they made the same version current.
type BlueprintStore struct {
	blueprints *store.Bucket
	targets    *store.Bucket
}

// NewBlueprintStore opens the blueprint buckets, creating them if absent.
func NewBlueprintStore(js nats.JetStreamContext) (*BlueprintStore, error) {
	blueprints, err := store.OpenBucket(js, bucketBlueprints, 10)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	targets, err := store.OpenBucket(js, bucketBlueprintTargets, 50)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	return &BlueprintStore{blueprints: blueprints, targets: targets}, nil
}

func versionKey(v int64) string {
	return fmt.Sprintf("%020d", v)
}

// PutBlueprint writes (or overwrites) a blueprint's declarative content.
// Blueprints are content, not history, so this is an unconditional write.
func (b *BlueprintStore) PutBlueprint(bp *model.Blueprint) error {
	_, err := store.Put(b.blueprints, bp.ID, bp)
	return err
}

// SetTarget makes blueprintID the target at version, the monotone
// "retarget" operation. A version that is not larger than every version
// previously claimed is rejected with Conflict.
func (b *BlueprintStore) SetTarget(blueprintID string, version int64, enabled bool) (*model.BlueprintTarget, error) {
	keys, err := store.Keys(b.targets)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	for _, k := range keys {
		if v, err := strconv.ParseInt(k, 10, 64); err == nil && v >= version {
			return nil, apierrors.Conflict("blueprint_target", versionKey(version))
		}
	}
	target := &model.BlueprintTarget{
		BlueprintID:    blueprintID,
		Version:        version,
		Enabled:        enabled,
		TimeMadeTarget: time.Now(),
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	if _, err := store.TryCreateUnique(b.targets, versionKey(version), data); err != nil {
		return nil, apierrors.Conflict("blueprint_target", versionKey(version))
	}
	return target, nil
}

// CurrentTarget returns the highest-versioned BlueprintTarget and its
// Blueprint. spec.md's Open Question of whether a disabled target should
// still drive the resolver is decided in DESIGN.md: Enabled is ignored here,
// matching the Rust original's behavior of always resolving against the
// highest version regardless of its enabled flag.
func (b *BlueprintStore) CurrentTarget() (*model.BlueprintTarget, *model.Blueprint, error) {
	keys, err := store.Keys(b.targets)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		return nil, nil, apierrors.NotFound("blueprint_target", "current")
	}

	var maxVersion int64 = -1
	var maxKey string
	for _, k := range keys {
		v, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		if v > maxVersion {
			maxVersion = v
			maxKey = k
		}
	}

	target, _, err := store.Get[model.BlueprintTarget](b.targets, maxKey)
	if err != nil {
		return nil, nil, apierrors.Internal(err)
	}
	bp, _, err := store.Get[model.Blueprint](b.blueprints, target.BlueprintID)
	if err != nil {
		return nil, nil, apierrors.NotFound("blueprint", target.BlueprintID)
	}
	return target, bp, nil
}
