// Package trade defines the entities shared by every component of the
// barter matching engine: owners, items, collections, wants, and the
// trade cycles the engine discovers among them.
package trade

// OwnerID identifies a wallet within a tenant. Opaque outside the engine.
type OwnerID string

// ItemID identifies an NFT within a tenant. Globally unique per tenant.
type ItemID string

// CollectionID identifies a named set of items within a tenant.
type CollectionID string

// TenantID identifies an isolated deployment within the registry.
type TenantID string
