package models

import (
	"strconv"
	"strings"
	"time"
)

// Permission is a bitmask over API-key capabilities.
type Permission uint8

const (
	PermissionRead   Permission = 1 << iota // 1
	PermissionWrite                         // 2
	PermissionDelete                        // 4

	PermissionAll = PermissionRead | PermissionWrite | PermissionDelete
)

// NewPermission builds a bitmask from individual flags.
func NewPermission(read, write, del bool) Permission {
	var p Permission
	if read {
		p |= PermissionRead
	}
	if write {
		p |= PermissionWrite
	}
	if del {
		p |= PermissionDelete
	}
	return p
}

// Valid reports whether at least one known bit is set and no unknown bit is.
func (p Permission) Valid() bool {
	return p != 0 && p&^PermissionAll == 0
}

func (p Permission) Has(bit Permission) bool { return p&bit == bit }

func (p Permission) String() string {
	if p == 0 {
		return "none"
	}
	var parts []string
	if p.Has(PermissionRead) {
		parts = append(parts, "read")
	}
	if p.Has(PermissionWrite) {
		parts = append(parts, "write")
	}
	if p.Has(PermissionDelete) {
		parts = append(parts, "delete")
	}
	if rest := p &^ PermissionAll; rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(rest), 16))
	}
	return strings.Join(parts, "|")
}

// ApiKey is a long-lived key owned by one account. Token and Permission do
// not change after issuance; revocation deletes the row.
type ApiKey struct {
	ID         string     `json:"id"`
	Token      string     `json:"token"`
	AccountID  string     `json:"uid"`
	Permission Permission `json:"permission"`
	CreatedAt  time.Time  `json:"createdAt"`
}
