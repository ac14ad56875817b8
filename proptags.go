package exmdbpp

// PropTag holds the well-known property tags used by the queries layer,
// each the property id packed into the high 16 bits and its PropvalType
// into the low 16, per TagType's extraction rule.
const (
	PropTagFolderID               uint32 = 0x6748<<16 | uint32(LongLong)
	PropTagParentFolderID         uint32 = 0x6749<<16 | uint32(LongLong)
	PropTagFolderType             uint32 = 0x3601<<16 | uint32(Long)
	PropTagDisplayName            uint32 = 0x3001<<16 | uint32(String)
	PropTagComment                uint32 = 0x3004<<16 | uint32(String)
	PropTagCreationTime           uint32 = 0x3007<<16 | uint32(FileTime)
	PropTagLastModificationTime   uint32 = 0x3008<<16 | uint32(FileTime)
	PropTagChangeNumber           uint32 = 0x67A4<<16 | uint32(LongLong)
	PropTagChangeKey              uint32 = 0x65E2<<16 | uint32(Binary)
	PropTagPredecessorChangeList  uint32 = 0x65E3<<16 | uint32(Binary)
	PropTagContainerClass         uint32 = 0x3613<<16 | uint32(String)
	PropTagMemberID               uint32 = 0x6671<<16 | uint32(LongLong)
	PropTagMemberName             uint32 = 0x6672<<16 | uint32(String)
	PropTagMemberRights           uint32 = 0x6673<<16 | uint32(Long)
	PropTagSmtpAddress            uint32 = 0x39FE<<16 | uint32(String)
	PropTagMid                    uint32 = 0x674A<<16 | uint32(LongLong)
	PropTagBody                   uint32 = 0x1000<<16 | uint32(String)
	PropTagMessageClass           uint32 = 0x001A<<16 | uint32(String)
)

// FolderType values for the FOLDERTYPE propval.
const (
	FolderTypeRoot    uint32 = 0
	FolderTypeGeneric uint32 = 1
	FolderTypeSearch  uint32 = 2
)

// Well-known folder values combined with a replica id via MakeEidEx to
// form a folder id. PrivateRoot is the root of a private mailbox store;
// PublicRoot and PublicIPMSubtree are the root and default IPM subtree
// of a domain's public store.
const (
	PrivateRoot      uint64 = 0x1
	PublicRoot       uint64 = 0x1
	PublicIPMSubtree uint64 = 0x5
)
