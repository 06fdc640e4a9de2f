package cluster

import (
	"fmt"
	"sync"

	"github.com/gridkv/gridkv-go/client/protocol"
	"github.com/zeebo/xxh3"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IPartitionRouter resolves which member currently owns a partition.
type IPartitionRouter interface {
	// Owner returns the endpoint of the member owning the partition.
	Owner(partitionID int32) (string, error)

	// PartitionID derives the partition a key belongs to.
	PartitionID(key []byte) int32

	// Count returns the total number of partitions.
	Count() int32
}

// --------------------------------------------------------------------------
// Partition Table
// --------------------------------------------------------------------------

// PartitionTable is a snapshot-updatable partition-to-owner mapping.
// Ownership is re-resolved on every send attempt, so a table update between
// two attempts of the same invocation re-routes the retry.
type PartitionTable struct {
	count int32

	mu     sync.RWMutex
	owners map[int32]string
}

var _ IPartitionRouter = (*PartitionTable)(nil)

// NewPartitionTable creates an empty table for the given partition count.
func NewPartitionTable(count int32) *PartitionTable {
	return &PartitionTable{
		count:  count,
		owners: make(map[int32]string),
	}
}

func (t *PartitionTable) Count() int32 { return t.count }

func (t *PartitionTable) Owner(partitionID int32) (string, error) {
	t.mu.RLock()
	owner, ok := t.owners[partitionID]
	t.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %d", protocol.ErrNoOwner, partitionID)
	}
	return owner, nil
}

// PartitionID hashes the key onto the partition space.
func (t *PartitionTable) PartitionID(key []byte) int32 {
	if len(key) == 0 {
		return 0
	}
	return int32(xxh3.Hash(key) % uint64(t.count))
}

// Update replaces the ownership snapshot. The map is copied; callers may
// reuse theirs.
func (t *PartitionTable) Update(owners map[int32]string) {
	snapshot := make(map[int32]string, len(owners))
	for partition, owner := range owners {
		snapshot[partition] = owner
	}

	t.mu.Lock()
	t.owners = snapshot
	t.mu.Unlock()
}

// AssignRoundRobin seeds the table by spreading partitions over the given
// endpoints in order. Used as the bootstrap assignment until the first
// topology update arrives.
func (t *PartitionTable) AssignRoundRobin(endpoints []string) {
	if len(endpoints) == 0 {
		return
	}

	owners := make(map[int32]string, t.count)
	for partition := int32(0); partition < t.count; partition++ {
		owners[partition] = endpoints[int(partition)%len(endpoints)]
	}
	t.Update(owners)
}
