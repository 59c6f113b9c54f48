package store

import (
	"encoding/json"
	"fmt"
	"time"

	"candorbox/pkg/models"
)

// SaveOrg persists an organization row, stamping UpdatedTS.
func SaveOrg(org *models.Organization) error {
	org.UpdatedTS = time.Now().UTC().UnixNano()
	if org.CreatedTS == 0 {
		org.CreatedTS = org.UpdatedTS
	}
	b, err := json.Marshal(org)
	if err != nil {
		return fmt.Errorf("failed to marshal org: %w", err)
	}
	return set(orgKey(org.ID), b)
}

// GetOrg loads an organization by id.
func GetOrg(id string) (*models.Organization, error) {
	b, err := get(orgKey(id))
	if err != nil {
		return nil, err
	}
	var org models.Organization
	if err := json.Unmarshal(b, &org); err != nil {
		return nil, fmt.Errorf("invalid org row %s: %w", id, err)
	}
	return &org, nil
}

// SaveOrgKey persists the wrapped DEK row for an organization.
func SaveOrgKey(k *models.OrgKey) error {
	b, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("failed to marshal org key: %w", err)
	}
	return set(orgKeyKey(k.OrgID), b)
}

// InsertOrgKey writes the wrapped DEK row only when none exists yet.
// Callers must hold the org key lock (see OrgKeyLock).
func InsertOrgKey(k *models.OrgKey) error {
	b, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("failed to marshal org key: %w", err)
	}
	return insertIfAbsent(orgKeyKey(k.OrgID), b)
}

// GetOrgKey loads the wrapped DEK row for an organization.
func GetOrgKey(orgID string) (*models.OrgKey, error) {
	b, err := get(orgKeyKey(orgID))
	if err != nil {
		return nil, err
	}
	var k models.OrgKey
	if err := json.Unmarshal(b, &k); err != nil {
		return nil, fmt.Errorf("invalid org key row %s: %w", orgID, err)
	}
	return &k, nil
}

// OrgKeyLock serializes DEK provisioning and rotation for one org.
func OrgKeyLock(orgID string) interface{ Lock(); Unlock() } {
	return lockScope("orgkey:" + orgID)
}
