package store

import "github.com/cockroachdb/pebble"

// The member directory is the source of the eligible-member count that
// seat-cap admission runs on. Workspaces sync it wholesale; individual
// joins and departures arrive as single puts and deletes.

// SyncMembers replaces the org's member directory with the given user
// ids and returns the new count.
func SyncMembers(orgID string, userIDs []string) (int, error) {
	if err := ensureOpen(); err != nil {
		return 0, err
	}
	lock := lockScope("member:" + orgID)
	lock.Lock()
	defer lock.Unlock()

	batch := db.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange([]byte(memberPrefix(orgID)), upperBound(memberPrefix(orgID)), nil); err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := batch.Set([]byte(memberKey(orgID, id)), []byte("1"), nil); err != nil {
			return 0, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return len(seen), nil
}

// AddMember records a single eligible member.
func AddMember(orgID, userID string) error {
	return set(memberKey(orgID, userID), []byte("1"))
}

// RemoveMember deletes a member directory entry.
func RemoveMember(orgID, userID string) error {
	if err := ensureOpen(); err != nil {
		return err
	}
	return db.Delete([]byte(memberKey(orgID, userID)), pebble.Sync)
}

// CountMembers returns the current eligible-member count for an org.
func CountMembers(orgID string) (int, error) {
	return countPrefix(memberPrefix(orgID))
}
