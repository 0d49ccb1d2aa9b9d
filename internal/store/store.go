package store

import "github.com/listenupapp/saveable/internal/domain"

// SaveOrder selects the ordering of ListSaves.
type SaveOrder int

const (
	// OrderByPosition sorts by order position ascending, newest first on ties.
	OrderByPosition SaveOrder = iota
	// OrderByNewest sorts by creation time descending.
	OrderByNewest
)

// SaveFilter narrows ListSaves and CountSaves. Zero fields do not filter.
type SaveFilter struct {
	Saver        *domain.EntityRef
	Saveable     *domain.EntityRef
	CollectionID *string
	SaverType    string
	SaveableType string
	Order        SaveOrder
	// Unsorted keeps only saves outside any collection.
	Unsorted bool
}

// SaverSaves filters by saver and, when typ is non-empty, saveable type.
func SaverSaves(saver domain.EntityRef, typ string) SaveFilter {
	return SaveFilter{Saver: &saver, SaveableType: typ}
}

// SaveableSaves filters by saveable and, when typ is non-empty, saver type.
func SaveableSaves(saveable domain.EntityRef, typ string) SaveFilter {
	return SaveFilter{Saveable: &saveable, SaverType: typ, Order: OrderByNewest}
}

// CollectionFilter narrows ListCollections.
type CollectionFilter struct {
	Owner    *domain.EntityRef
	ParentID *string
	// RootOnly keeps only collections without a parent.
	RootOnly bool
}
