package domain

// Cascade describes what must happen when an entity is about to be removed.
// Each flag mirrors a role the entity's type was registered with; a type can
// hold any combination.
type Cascade struct {
	Ref        EntityRef
	AsSaver    bool // delete every save where Ref is the saver
	AsSaveable bool // delete every save where Ref is the saveable
	AsOwner    bool // delete every collection Ref owns, unlinking their saves
}

// IsNoop reports whether the cascade has nothing to do.
func (c Cascade) IsNoop() bool {
	return !c.AsSaver && !c.AsSaveable && !c.AsOwner
}

// CascadeResult counts the rows touched by a cascade.
type CascadeResult struct {
	SavesDeleted       int64
	SavesUnlinked      int64
	CollectionsDeleted int64
}

// Add accumulates other into r.
func (r *CascadeResult) Add(other CascadeResult) {
	r.SavesDeleted += other.SavesDeleted
	r.SavesUnlinked += other.SavesUnlinked
	r.CollectionsDeleted += other.CollectionsDeleted
}
