// Package queries implements the composed, table-lifecycle-respecting
// operations built on top of client's request catalog.
package queries

import "github.com/grommunio/exmdbpp-go"

// Folder is a convenience view over a folder row returned by
// ListFolders/GetFolderList, picking out the commonly used properties.
type Folder struct {
	FolderID     uint64
	DisplayName  string
	Comment      string
	CreationTime uint64
	Container    string
}

// NewFolder interprets a row of propvals as a Folder, filling in
// whichever of the known tags are present and ignoring the rest.
func NewFolder(propvals []exmdbpp.TaggedPropval) Folder {
	var f Folder
	for _, pv := range propvals {
		switch pv.Tag {
		case exmdbpp.PropTagFolderID:
			f.FolderID, _ = pv.Value.(uint64)
		case exmdbpp.PropTagDisplayName:
			f.DisplayName, _ = pv.Value.(string)
		case exmdbpp.PropTagComment:
			f.Comment, _ = pv.Value.(string)
		case exmdbpp.PropTagCreationTime:
			f.CreationTime, _ = pv.Value.(uint64)
		case exmdbpp.PropTagContainerClass:
			f.Container, _ = pv.Value.(string)
		}
	}
	return f
}

// FolderList is a structured view over a table of folder rows.
type FolderList struct {
	Folders []Folder
}

// NewFolderList interprets a propval table as a FolderList.
func NewFolderList(table [][]exmdbpp.TaggedPropval) FolderList {
	fl := FolderList{Folders: make([]Folder, len(table))}
	for i, row := range table {
		fl.Folders[i] = NewFolder(row)
	}
	return fl
}

// FolderMember is one row of a folder's permission list.
type FolderMember struct {
	ID     uint64
	Name   string
	Rights uint32
}

// FolderMemberList is a structured view over a folder's permission table.
type FolderMemberList struct {
	Members []FolderMember
}

// NewFolderMemberList interprets a propval table as a FolderMemberList.
func NewFolderMemberList(table [][]exmdbpp.TaggedPropval) FolderMemberList {
	ml := FolderMemberList{Members: make([]FolderMember, 0, len(table))}
	for _, row := range table {
		var m FolderMember
		for _, pv := range row {
			switch pv.Tag {
			case exmdbpp.PropTagMemberID:
				m.ID, _ = pv.Value.(uint64)
			case exmdbpp.PropTagMemberName:
				m.Name, _ = pv.Value.(string)
			case exmdbpp.PropTagMemberRights:
				m.Rights, _ = pv.Value.(uint32)
			}
		}
		ml.Members = append(ml.Members, m)
	}
	return ml
}

// SyncData maps a device's display name to the raw body of its
// grommunio-sync state message.
type SyncData map[string]string

// specialMember reports whether id is a placeholder/group row that must
// never be touched by permission edits.
func specialMember(id uint64) bool {
	return id == 0 || id == 0xFFFFFFFFFFFFFFFF
}
