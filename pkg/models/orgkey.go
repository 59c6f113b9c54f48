package models

// OrgKey is the single wrapped data-encryption-key row for one
// organization. Wrapped holds the marshaled wrapping blob (nonce and
// ciphertext as one opaque value); the raw DEK never touches disk.
type OrgKey struct {
	OrgID   string `json:"org"`
	Wrapped []byte `json:"wrapped"`
	// KekVersion names the master-key ring version the DEK is currently
	// wrapped under. Rotation rewraps and bumps this.
	KekVersion string `json:"kek_version"`
	CreatedTS  int64  `json:"created_ts"`
	RotatedTS  int64  `json:"rotated_ts,omitempty"`
}
