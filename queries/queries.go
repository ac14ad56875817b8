package queries

import (
	"context"
	"math/bits"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grommunio/exmdbpp-go"
	"github.com/grommunio/exmdbpp-go/client"
	"github.com/grommunio/exmdbpp-go/internal/wire"
)

// OwnerRights is the default permission mask granting full folder
// ownership, for callers of SetFolderMember(s) that want "owner" rights
// without memorizing the bitmask.
const OwnerRights uint32 = 0x000007e3

// DefaultFolderProps is the property set GetFolderList requests when the
// caller has no specific columns in mind.
var DefaultFolderProps = []uint32{
	exmdbpp.PropTagFolderID,
	exmdbpp.PropTagDisplayName,
	exmdbpp.PropTagComment,
	exmdbpp.PropTagCreationTime,
	exmdbpp.PropTagContainerClass,
}

const (
	deviceDataName    = "devicedata"
	deviceStateMsgCls = "IPM.Note.GrommunioState"
)

// PropvalTable is a table of propval rows, the shape every table-backed
// query returns before a caller interprets it as a Folder/FolderMember.
type PropvalTable [][]exmdbpp.TaggedPropval

func rowsToTable(rows []client.Row) PropvalTable {
	t := make(PropvalTable, len(rows))
	for i, r := range rows {
		t[i] = []exmdbpp.TaggedPropval(r)
	}
	return t
}

// ExmdbQueries layers the table-lifecycle-respecting composite
// operations on top of a connected Client. Embedding gives callers
// direct access to Connect/Close/Send alongside the higher-level
// methods below.
type ExmdbQueries struct {
	*client.Client
	Logger *logrus.Logger
}

// New wraps c with the composite query operations. A nil logger falls
// back to logrus's standard logger.
func New(c *client.Client, logger *logrus.Logger) *ExmdbQueries {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ExmdbQueries{Client: c, Logger: logger}
}

// unloadTable always issues UnloadTable, even when queryErr is set, and
// returns queryErr if non-nil, otherwise the unload error.
func (q *ExmdbQueries) unloadTable(ctx context.Context, homedir string, tableID uint32, queryErr error) error {
	unloadErr := client.UnloadTable(ctx, q.Client, homedir, tableID)
	if queryErr != nil {
		if unloadErr != nil {
			q.Logger.WithError(unloadErr).Warn("exmdb: UnloadTable failed after a prior error")
		}
		return queryErr
	}
	return unloadErr
}

// ListFolders loads a folder's hierarchy (recursively if requested),
// applies restriction server-side, and returns the requested proptags
// for each row interpreted as a FolderList. An offset and limit of 0
// both means "use the server's reported row count".
func (q *ExmdbQueries) ListFolders(ctx context.Context, homedir string, parent uint64, recursive bool, proptags []uint32, offset, limit uint32, restriction *exmdbpp.Restriction) (FolderList, error) {
	var tableFlags uint8
	if recursive {
		tableFlags |= client.TableFlagDepth
	}
	tr, err := client.LoadHierarchyTable(ctx, q.Client, homedir, parent, "", tableFlags, restriction)
	if err != nil {
		return FolderList{}, err
	}
	q.Logger.WithFields(logrus.Fields{"homedir": homedir, "tableId": tr.TableID, "rows": tr.RowCount}).Debug("exmdb: hierarchy table loaded")

	if offset == 0 && limit == 0 {
		limit = tr.RowCount
	}
	rows, qErr := client.QueryTable(ctx, q.Client, homedir, "", 0, tr.TableID, proptags, offset, limit)
	if err := q.unloadTable(ctx, homedir, tr.TableID, qErr); err != nil {
		return FolderList{}, err
	}
	return NewFolderList(rowsToTable(rows)), nil
}

// GetFolderList is the non-recursive, non-paginated convenience form of
// ListFolders over a domain's default public IPM subtree, using
// DefaultFolderProps.
func (q *ExmdbQueries) GetFolderList(ctx context.Context, homedir string) (FolderList, error) {
	parent := exmdbpp.MakeEidEx(1, exmdbpp.PublicIPMSubtree)
	return q.ListFolders(ctx, homedir, parent, false, DefaultFolderProps, 0, 0, nil)
}

// FindFolder looks up folders matching name under parent (the private
// root if parent is 0) using a fuzzy CONTENT restriction on DISPLAYNAME.
func (q *ExmdbQueries) FindFolder(ctx context.Context, homedir, name string, parent uint64, recursive bool, fuzzyLevel uint32, proptags []uint32) (FolderList, error) {
	if parent == 0 {
		parent = exmdbpp.MakeEidEx(1, exmdbpp.PrivateRoot)
	}
	nameVal, err := exmdbpp.NewString(exmdbpp.PropTagDisplayName, name, false)
	if err != nil {
		return FolderList{}, err
	}
	restriction := exmdbpp.RestrictionContent(fuzzyLevel, 0, nameVal)
	return q.ListFolders(ctx, homedir, parent, recursive, proptags, 0, 0, &restriction)
}

// CreateFolder allocates a change number, assembles the propval set a
// new public folder needs (including its CHANGEKEY/PREDECESSORCHANGELIST
// XID), and creates the folder. It returns 0 on failure.
func (q *ExmdbQueries) CreateFolder(ctx context.Context, homedir string, domainID uint32, name, container, comment string) (uint64, error) {
	changeNum, err := client.AllocateCn(ctx, q.Client)
	if err != nil {
		return 0, err
	}

	now := exmdbpp.NtTime(time.Now().Unix())
	xid := exmdbpp.NewSizedXID(exmdbpp.GUIDFromDomainID(domainID), exmdbpp.ValueToGc(changeNum))

	xidBuf := wire.NewBuffer()
	if err := xid.Serialize(xidBuf); err != nil {
		return 0, err
	}
	changeKeyBytes := append([]byte(nil), xidBuf.Bytes()...)

	propvals := make([]exmdbpp.TaggedPropval, 0, 9)
	add := func(pv exmdbpp.TaggedPropval, cErr error) error {
		if cErr != nil {
			return cErr
		}
		propvals = append(propvals, pv)
		return nil
	}

	if err := add(exmdbpp.NewLongLong(exmdbpp.PropTagParentFolderID, exmdbpp.MakeEidEx(1, exmdbpp.PublicIPMSubtree))); err != nil {
		return 0, err
	}
	if err := add(exmdbpp.NewLong(exmdbpp.PropTagFolderType, exmdbpp.FolderTypeGeneric)); err != nil {
		return 0, err
	}
	if err := add(exmdbpp.NewString(exmdbpp.PropTagDisplayName, name, false)); err != nil {
		return 0, err
	}
	if err := add(exmdbpp.NewString(exmdbpp.PropTagComment, comment, false)); err != nil {
		return 0, err
	}
	if err := add(exmdbpp.NewLongLong(exmdbpp.PropTagCreationTime, now)); err != nil {
		return 0, err
	}
	if err := add(exmdbpp.NewLongLong(exmdbpp.PropTagLastModificationTime, now)); err != nil {
		return 0, err
	}
	// CHANGENUMBER carries the change number in the byte order the server
	// sent it; AllocateCn returned it already swapped for ValueToGc.
	if err := add(exmdbpp.NewLongLong(exmdbpp.PropTagChangeNumber, bits.ReverseBytes64(changeNum))); err != nil {
		return 0, err
	}
	if err := add(exmdbpp.NewBinary(exmdbpp.PropTagChangeKey, changeKeyBytes, true)); err != nil {
		return 0, err
	}
	if err := add(exmdbpp.NewBinary(exmdbpp.PropTagPredecessorChangeList, changeKeyBytes, true)); err != nil {
		return 0, err
	}
	if container != "" {
		if err := add(exmdbpp.NewString(exmdbpp.PropTagContainerClass, container, false)); err != nil {
			return 0, err
		}
	}

	return client.CreateFolderByProperties(ctx, q.Client, homedir, 0, propvals)
}

// DeleteFolder removes a folder, optionally emptying its contents first.
func (q *ExmdbQueries) DeleteFolder(ctx context.Context, homedir string, folderID uint64, clear bool) (bool, error) {
	if clear {
		if err := client.EmptyFolder(ctx, q.Client, homedir, 0, "", folderID, true, true, true, true); err != nil {
			return false, err
		}
	}
	return client.DeleteFolder(ctx, q.Client, homedir, 0, folderID, true)
}

// GetFolderMemberList reads a folder's permission table.
func (q *ExmdbQueries) GetFolderMemberList(ctx context.Context, homedir string, folderID uint64) (FolderMemberList, error) {
	tr, err := client.LoadPermissionTable(ctx, q.Client, homedir, folderID, 0)
	if err != nil {
		return FolderMemberList{}, err
	}
	proptags := []uint32{exmdbpp.PropTagMemberID, exmdbpp.PropTagMemberName, exmdbpp.PropTagMemberRights}
	rows, qErr := client.QueryTable(ctx, q.Client, homedir, "", 0, tr.TableID, proptags, 0, tr.RowCount)
	if err := q.unloadTable(ctx, homedir, tr.TableID, qErr); err != nil {
		return FolderMemberList{}, err
	}
	return NewFolderMemberList(rowsToTable(rows)), nil
}

func addRowPermission(username string, rights uint32) (exmdbpp.PermissionData, error) {
	name, err := exmdbpp.NewString(exmdbpp.PropTagSmtpAddress, username, false)
	if err != nil {
		return exmdbpp.PermissionData{}, err
	}
	rts, err := exmdbpp.NewLong(exmdbpp.PropTagMemberRights, rights)
	if err != nil {
		return exmdbpp.PermissionData{}, err
	}
	return exmdbpp.PermissionData{Flags: exmdbpp.AddRow, Propvals: []exmdbpp.TaggedPropval{name, rts}}, nil
}

func modifyRowPermission(id uint64, rights uint32) (exmdbpp.PermissionData, error) {
	idVal, err := exmdbpp.NewLongLong(exmdbpp.PropTagMemberID, id)
	if err != nil {
		return exmdbpp.PermissionData{}, err
	}
	rts, err := exmdbpp.NewLong(exmdbpp.PropTagMemberRights, rights)
	if err != nil {
		return exmdbpp.PermissionData{}, err
	}
	return exmdbpp.PermissionData{Flags: exmdbpp.ModifyRow, Propvals: []exmdbpp.TaggedPropval{idVal, rts}}, nil
}

func removeRowPermission(id uint64) (exmdbpp.PermissionData, error) {
	idVal, err := exmdbpp.NewLongLong(exmdbpp.PropTagMemberID, id)
	if err != nil {
		return exmdbpp.PermissionData{}, err
	}
	return exmdbpp.PermissionData{Flags: exmdbpp.RemoveRow, Propvals: []exmdbpp.TaggedPropval{idVal}}, nil
}

// SetFolderMember adds rights to (remove=false) or removes rights from
// (remove=true) one member on a folder, diffed against the member's
// current rights (0 if absent). It has no mode that replaces a member's
// rights outright. Rows with special member ids are never matched or
// edited.
func (q *ExmdbQueries) SetFolderMember(ctx context.Context, homedir string, folderID uint64, username string, rights uint32, remove bool) error {
	current, err := q.GetFolderMemberList(ctx, homedir, folderID)
	if err != nil {
		return err
	}

	var existing *FolderMember
	for i := range current.Members {
		m := &current.Members[i]
		if specialMember(m.ID) {
			continue
		}
		if m.Name == username {
			existing = m
			break
		}
	}

	var old uint32
	var id uint64
	if existing != nil {
		old, id = existing.Rights, existing.ID
	}

	var newRights uint32
	if remove {
		newRights = old &^ rights
	} else {
		newRights = old | rights
	}
	if newRights == old {
		return nil
	}

	var pd exmdbpp.PermissionData
	switch {
	case existing == nil:
		pd, err = addRowPermission(username, newRights)
	case newRights == 0:
		pd, err = removeRowPermission(id)
	default:
		pd, err = modifyRowPermission(id, newRights)
	}
	if err != nil {
		return err
	}
	return client.UpdateFolderPermission(ctx, q.Client, homedir, folderID, false, []exmdbpp.PermissionData{pd})
}

// membershipOp is one pending permission-row edit, the pure-data result
// of diffing a folder's current members against a requested set. It
// carries enough to build either an ADD_ROW, MODIFY_ROW or REMOVE_ROW
// PermissionData without touching the network.
type membershipOp struct {
	flag   uint8
	id     uint64
	name   string
	rights uint32
}

// diffFolderMembers computes the permission-row edits needed so that
// every username in requested ends up with rights ⊇ rights, and every
// other current, non-special member loses rights (removed outright if
// that leaves it with none). It touches no network and is safe to test
// in isolation.
func diffFolderMembers(current []FolderMember, requested []string, rights uint32) []membershipOp {
	wanted := make(map[string]bool, len(requested))
	for _, m := range requested {
		wanted[m] = true
	}

	var ops []membershipOp
	seen := make(map[string]bool, len(requested))
	for _, m := range current {
		if specialMember(m.ID) {
			continue
		}
		if wanted[m.Name] {
			seen[m.Name] = true
			newRights := m.Rights | rights
			if newRights != m.Rights {
				ops = append(ops, membershipOp{flag: exmdbpp.ModifyRow, id: m.ID, name: m.Name, rights: newRights})
			}
			continue
		}
		newRights := m.Rights &^ rights
		if newRights == m.Rights {
			continue
		}
		if newRights == 0 {
			ops = append(ops, membershipOp{flag: exmdbpp.RemoveRow, id: m.ID, name: m.Name})
		} else {
			ops = append(ops, membershipOp{flag: exmdbpp.ModifyRow, id: m.ID, name: m.Name, rights: newRights})
		}
	}
	for _, username := range requested {
		if seen[username] {
			continue
		}
		ops = append(ops, membershipOp{flag: exmdbpp.AddRow, name: username, rights: rights})
	}
	return ops
}

func (op membershipOp) permissionData() (exmdbpp.PermissionData, error) {
	switch op.flag {
	case exmdbpp.AddRow:
		return addRowPermission(op.name, op.rights)
	case exmdbpp.RemoveRow:
		return removeRowPermission(op.id)
	default:
		return modifyRowPermission(op.id, op.rights)
	}
}

// SetFolderMembers grants rights to every username in members, and
// removes rights from every other non-special member currently on the
// folder, in a single UpdateFolderPermission batch.
func (q *ExmdbQueries) SetFolderMembers(ctx context.Context, homedir string, folderID uint64, members []string, rights uint32) error {
	current, err := q.GetFolderMemberList(ctx, homedir, folderID)
	if err != nil {
		return err
	}

	ops := diffFolderMembers(current.Members, members, rights)
	if len(ops) == 0 {
		return nil
	}

	perms := make([]exmdbpp.PermissionData, 0, len(ops))
	for _, op := range ops {
		pd, err := op.permissionData()
		if err != nil {
			return err
		}
		perms = append(perms, pd)
	}
	return client.UpdateFolderPermission(ctx, q.Client, homedir, folderID, false, perms)
}

// GetSyncData enumerates every device subfolder of folderName and reads
// the body of its "devicedata"/"IPM.Note.GrommunioState" state message,
// keyed by the subfolder's display name (the device id).
func (q *ExmdbQueries) GetSyncData(ctx context.Context, homedir, folderName string) (SyncData, error) {
	parentFolderID := exmdbpp.MakeEidEx(1, exmdbpp.PublicRoot)
	syncFolderID, err := client.GetFolderByName(ctx, q.Client, homedir, parentFolderID, folderName)
	if err != nil {
		return nil, err
	}

	tr, err := client.LoadHierarchyTable(ctx, q.Client, homedir, syncFolderID, "", 0, nil)
	if err != nil {
		return nil, err
	}
	fidTags := []uint32{exmdbpp.PropTagFolderID, exmdbpp.PropTagDisplayName}
	subRows, qErr := client.QueryTable(ctx, q.Client, homedir, "", 0, tr.TableID, fidTags, 0, tr.RowCount)
	if err := q.unloadTable(ctx, homedir, tr.TableID, qErr); err != nil {
		return nil, err
	}

	ddFilter, err := deviceDataFilter()
	if err != nil {
		return nil, err
	}

	data := make(SyncData, len(subRows))
	for _, row := range subRows {
		if len(row) != 2 {
			continue
		}
		subFolderID, ok1 := row[0].Value.(uint64)
		displayName, ok2 := row[1].Value.(string)
		if row[0].Tag != exmdbpp.PropTagFolderID || row[1].Tag != exmdbpp.PropTagDisplayName || !ok1 || !ok2 {
			continue
		}

		content, err := client.LoadContentTable(ctx, q.Client, homedir, 0, subFolderID, "", 2, &ddFilter)
		if err != nil {
			return nil, err
		}
		midRows, qErr := client.QueryTable(ctx, q.Client, homedir, "", 0, content.TableID, []uint32{exmdbpp.PropTagMid}, 0, content.RowCount)
		if err := q.unloadTable(ctx, homedir, content.TableID, qErr); err != nil {
			return nil, err
		}
		if len(midRows) == 0 {
			continue
		}
		msgRow := midRows[0]
		if len(msgRow) != 1 || msgRow[0].Tag != exmdbpp.PropTagMid {
			continue
		}
		mid, ok := msgRow[0].Value.(uint64)
		if !ok {
			continue
		}

		msgProps, err := client.GetMessageProperties(ctx, q.Client, homedir, "", 0, mid, []uint32{exmdbpp.PropTagBody})
		if err != nil {
			return nil, err
		}
		if len(msgProps) != 1 || msgProps[0].Tag != exmdbpp.PropTagBody {
			continue
		}
		body, ok := msgProps[0].Value.(string)
		if !ok {
			continue
		}
		data[displayName] = body
	}
	return data, nil
}

func deviceDataFilter() (exmdbpp.Restriction, error) {
	nameVal, err := exmdbpp.NewString(exmdbpp.PropTagDisplayName, deviceDataName, false)
	if err != nil {
		return exmdbpp.Restriction{}, err
	}
	clsVal, err := exmdbpp.NewString(exmdbpp.PropTagMessageClass, deviceStateMsgCls, false)
	if err != nil {
		return exmdbpp.Restriction{}, err
	}
	return exmdbpp.RestrictionAnd(
		exmdbpp.RestrictionProperty(exmdbpp.OpEQ, 0, nameVal),
		exmdbpp.RestrictionProperty(exmdbpp.OpEQ, 0, clsVal),
	), nil
}

// deviceFolder resolves folderName/deviceId under the public root into a
// device subfolder id.
func (q *ExmdbQueries) deviceFolder(ctx context.Context, homedir, folderName, deviceID string) (uint64, error) {
	rootFolderID := exmdbpp.MakeEidEx(1, exmdbpp.PublicRoot)
	syncFolderID, err := client.GetFolderByName(ctx, q.Client, homedir, rootFolderID, folderName)
	if err != nil {
		return 0, err
	}
	return client.GetFolderByName(ctx, q.Client, homedir, syncFolderID, deviceID)
}

// RemoveDevice empties and deletes a device's sync folder; the device
// re-syncs from scratch on next contact.
func (q *ExmdbQueries) RemoveDevice(ctx context.Context, homedir, folderName, deviceID string) error {
	folderID, err := q.deviceFolder(ctx, homedir, folderName, deviceID)
	if err != nil {
		return err
	}
	if err := client.EmptyFolder(ctx, q.Client, homedir, 0, "", folderID, true, true, true, true); err != nil {
		return err
	}
	_, err = client.DeleteFolder(ctx, q.Client, homedir, 0, folderID, true)
	return err
}

// ResyncDevice deletes every message in a device's sync folder except
// its "devicedata" state message, forcing the device to re-fetch its
// mail while keeping its sync state intact. It reports whether every
// message was deleted.
func (q *ExmdbQueries) ResyncDevice(ctx context.Context, homedir, folderName, deviceID string, userID uint32) (bool, error) {
	folderID, err := q.deviceFolder(ctx, homedir, folderName, deviceID)
	if err != nil {
		return false, err
	}

	nameVal, err := exmdbpp.NewString(exmdbpp.PropTagDisplayName, deviceDataName, false)
	if err != nil {
		return false, err
	}
	keepFilter := exmdbpp.RestrictionNot(exmdbpp.RestrictionProperty(exmdbpp.OpEQ, 0, nameVal))

	content, err := client.LoadContentTable(ctx, q.Client, homedir, 0, folderID, "", 0, &keepFilter)
	if err != nil {
		return false, err
	}
	rows, qErr := client.QueryTable(ctx, q.Client, homedir, "", 0, content.TableID, []uint32{exmdbpp.PropTagMid}, 0, content.RowCount)
	if err := q.unloadTable(ctx, homedir, content.TableID, qErr); err != nil {
		return false, err
	}

	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		if len(row) != 1 || row[0].Tag != exmdbpp.PropTagMid {
			continue
		}
		if mid, ok := row[0].Value.(uint64); ok {
			ids = append(ids, mid)
		}
	}
	if len(ids) == 0 {
		return true, nil
	}

	partial, err := client.DeleteMessages(ctx, q.Client, homedir, userID, 0, "", folderID, ids, true)
	if err != nil {
		return false, err
	}
	return !partial, nil
}

// SetFolderProperties overwrites propvals on a folder.
func (q *ExmdbQueries) SetFolderProperties(ctx context.Context, homedir string, cpid uint32, folderID uint64, propvals []exmdbpp.TaggedPropval) ([]exmdbpp.PropertyProblem, error) {
	return client.SetFolderProperties(ctx, q.Client, homedir, cpid, folderID, propvals)
}

// GetFolderProperties reads propvals from a folder.
func (q *ExmdbQueries) GetFolderProperties(ctx context.Context, homedir string, cpid uint32, folderID uint64, proptags []uint32) ([]exmdbpp.TaggedPropval, error) {
	return client.GetFolderProperties(ctx, q.Client, homedir, cpid, folderID, proptags)
}

// SetStoreProperties overwrites propvals on a store.
func (q *ExmdbQueries) SetStoreProperties(ctx context.Context, homedir string, cpid uint32, propvals []exmdbpp.TaggedPropval) ([]exmdbpp.PropertyProblem, error) {
	return client.SetStoreProperties(ctx, q.Client, homedir, cpid, propvals)
}

// GetStoreProperties reads propvals from a store.
func (q *ExmdbQueries) GetStoreProperties(ctx context.Context, homedir string, cpid uint32, proptags []uint32) ([]exmdbpp.TaggedPropval, error) {
	return client.GetStoreProperties(ctx, q.Client, homedir, cpid, proptags)
}

// GetAllStoreProperties lists every proptag currently set on a store.
func (q *ExmdbQueries) GetAllStoreProperties(ctx context.Context, homedir string) ([]uint32, error) {
	return client.GetAllStoreProperties(ctx, q.Client, homedir)
}

// RemoveStoreProperties removes proptags from a store.
func (q *ExmdbQueries) RemoveStoreProperties(ctx context.Context, homedir string, proptags []uint32) error {
	return client.RemoveStoreProperties(ctx, q.Client, homedir, proptags)
}

// UnloadStore releases a store handle implicitly opened by prior calls.
func (q *ExmdbQueries) UnloadStore(ctx context.Context, homedir string) error {
	return client.UnloadStore(ctx, q.Client, homedir)
}

// ResolveNamedProperties resolves (and, if create is set, allocates) a
// property id for each given PropertyName, returned as a map keyed by
// the input name for convenient lookup.
func (q *ExmdbQueries) ResolveNamedProperties(ctx context.Context, homedir string, create bool, names []exmdbpp.PropertyName) (map[exmdbpp.PropertyName]uint16, error) {
	ids, err := client.ResolveNamedProperties(ctx, q.Client, homedir, create, names)
	if err != nil {
		return nil, err
	}
	out := make(map[exmdbpp.PropertyName]uint16, len(names))
	for i, name := range names {
		out[name] = ids[i]
	}
	return out, nil
}
