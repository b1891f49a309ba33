package shared

// Entity is the base interface for all domain entities.
// An ID of zero means the record has not been persisted yet.
type Entity interface {
	GetID() int64
	SetID(id int64)
	IsNew() bool
	// Validate checks required fields, bounds and enumerations.
	Validate() error
	// IndexName is the search index the entity is mirrored into.
	IndexName() string
}

// Record constrains a type parameter to a pointer to an entity struct.
type Record[T any] interface {
	*T
	Entity
}

// Referencing is implemented by entities holding many-to-one references.
// LinkReferences copies the referenced identities into the foreign key
// fields before the record is written.
type Referencing interface {
	LinkReferences()
}

// BaseEntity provides the surrogate key shared by all entities
type BaseEntity struct {
	ID int64 `json:"id,omitempty" gorm:"primaryKey;autoIncrement"`
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() int64 {
	return e.ID
}

// SetID assigns the entity ID
func (e *BaseEntity) SetID(id int64) {
	e.ID = id
}

// IsNew reports whether the entity has no identity yet
func (e *BaseEntity) IsNew() bool {
	return e.ID == 0
}

// SameIdentity reports identity equality. Records without an identity are
// never equal to anything, themselves included.
func SameIdentity(a, b Entity) bool {
	if a == nil || b == nil {
		return false
	}
	return a.GetID() != 0 && a.GetID() == b.GetID()
}
