package entities

import (
	"time"

	"github.com/google/uuid"
)

// ApiKeyStatus is the lifecycle state of an API key. Revoked is terminal.
type ApiKeyStatus string

const (
	ApiKeyStatusActive  ApiKeyStatus = "active"
	ApiKeyStatusRevoked ApiKeyStatus = "revoked"
)

// ApiKey is a bearer credential owned by an account. The raw secret is
// never persisted; only the argon2id hash survives provisioning.
type ApiKey struct {
	ID         uuid.UUID    `json:"id"`
	AccountID  uuid.UUID    `json:"accountId"`
	Label      string       `json:"label"`
	KeyPrefix  string       `json:"-"`
	SecretHash string       `json:"-"`
	Status     ApiKeyStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	RevokedAt  *time.Time   `json:"revokedAt,omitempty"`
}

type CreateApiKeyInput struct {
	Label string `json:"label" binding:"required"`
}

// CreateApiKeyResponse carries the raw token. It is returned exactly once,
// from provision and rotate, and is unrecoverable afterwards.
type CreateApiKeyResponse struct {
	ID        uuid.UUID `json:"keyId"`
	Label     string    `json:"label"`
	RawSecret string    `json:"rawSecret"`
	CreatedAt time.Time `json:"createdAt"`
}

// ApiKeyListItem is the list view; it never exposes hash or secret material.
type ApiKeyListItem struct {
	ID        uuid.UUID    `json:"keyId"`
	Label     string       `json:"label"`
	Status    ApiKeyStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}
