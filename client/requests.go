package client

import (
	"context"

	"github.com/grommunio/exmdbpp-go"
	"github.com/grommunio/exmdbpp-go/internal/wire"
)

// TableResponse is returned by every Load…Table call.
type TableResponse struct {
	TableID  uint32
	RowCount uint32
}

// Row is one row of a QueryTable response: a list of propvals in the
// order the caller requested proptags.
type Row []exmdbpp.TaggedPropval

func pushProptags(buf *wire.Buffer, proptags []uint32) {
	buf.PushUint32(uint32(len(proptags)))
	for _, pt := range proptags {
		buf.PushUint32(pt)
	}
}

func pushRestriction(buf *wire.Buffer, r *exmdbpp.Restriction) error {
	if r == nil {
		var null exmdbpp.Restriction
		return null.Serialize(buf)
	}
	return r.Serialize(buf)
}

func pushPropvals(buf *wire.Buffer, propvals []exmdbpp.TaggedPropval) error {
	buf.PushUint32(uint32(len(propvals)))
	for _, pv := range propvals {
		if err := pv.Serialize(buf); err != nil {
			return err
		}
	}
	return nil
}

// wireErr wraps a Buffer's short-read error into exmdbpp.ShortReadError so
// callers outside this module have an exported type to errors.As into.
func wireErr(err error) error {
	return exmdbpp.WrapShortRead(err)
}

func popPropvals(buf *wire.Buffer, n uint32) ([]exmdbpp.TaggedPropval, error) {
	out := make([]exmdbpp.TaggedPropval, n)
	for i := range out {
		pv, err := exmdbpp.DeserializeTaggedPropval(buf)
		if err != nil {
			return nil, err
		}
		out[i] = pv
	}
	return out, nil
}

// Connect prepares a session. It must be the first call on a
// connection; Client.Connect issues it automatically after dialing.
func Connect(ctx context.Context, c *Client, prefix string, isPrivate bool) error {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallConnect))
	buf.PushCString(prefix)
	buf.PushBool(isPrivate)
	_, err := c.Send(ctx, buf.Bytes())
	return err
}

// AllocateCn allocates a fresh change number. The wire form is
// big-endian; the returned value is already decoded into a plain
// change number, ready to pass to exmdbpp.ValueToGc.
func AllocateCn(ctx context.Context, c *Client) (uint64, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallAllocateCn))
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return 0, err
	}
	r := wire.NewBufferFrom(resp)
	cn := r.PopUint64BE()
	if err := wireErr(r.Err()); err != nil {
		return 0, err
	}
	return cn, nil
}

// Hierarchy table load flags.
const (
	TableFlagDepth uint8 = 1 << 0
)

// LoadHierarchyTable loads a folder's subfolder hierarchy into a table
// handle. restriction may be nil for "no filter".
func LoadHierarchyTable(ctx context.Context, c *Client, homedir string, folderID uint64, username string, tableFlags uint8, restriction *exmdbpp.Restriction) (TableResponse, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallLoadHierarchyTable))
	buf.PushCString(homedir)
	buf.PushUint64(folderID)
	buf.PushCString(username)
	buf.PushByte(tableFlags)
	if err := pushRestriction(buf, restriction); err != nil {
		return TableResponse{}, err
	}
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return TableResponse{}, err
	}
	r := wire.NewBufferFrom(resp)
	tr := TableResponse{TableID: r.PopUint32(), RowCount: r.PopUint32()}
	return tr, wireErr(r.Err())
}

// LoadContentTable loads a folder's message list into a table handle.
func LoadContentTable(ctx context.Context, c *Client, homedir string, cpid uint32, folderID uint64, username string, tableFlags uint8, restriction *exmdbpp.Restriction) (TableResponse, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallLoadContentTable))
	buf.PushCString(homedir)
	buf.PushUint32(cpid)
	buf.PushUint64(folderID)
	buf.PushCString(username)
	buf.PushByte(tableFlags)
	if err := pushRestriction(buf, restriction); err != nil {
		return TableResponse{}, err
	}
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return TableResponse{}, err
	}
	r := wire.NewBufferFrom(resp)
	tr := TableResponse{TableID: r.PopUint32(), RowCount: r.PopUint32()}
	return tr, wireErr(r.Err())
}

// LoadPermissionTable loads a folder's permission list into a table handle.
func LoadPermissionTable(ctx context.Context, c *Client, homedir string, folderID uint64, flags uint8) (TableResponse, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallLoadPermissionTable))
	buf.PushCString(homedir)
	buf.PushUint64(folderID)
	buf.PushByte(flags)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return TableResponse{}, err
	}
	r := wire.NewBufferFrom(resp)
	tr := TableResponse{TableID: r.PopUint32(), RowCount: r.PopUint32()}
	return tr, wireErr(r.Err())
}

// QueryTable reads rowCount rows of proptags starting at rowOffset from
// an already-loaded table.
func QueryTable(ctx context.Context, c *Client, homedir, username string, cpid uint32, tableID uint32, proptags []uint32, rowOffset, rowCount uint32) ([]Row, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallQueryTable))
	buf.PushCString(homedir)
	buf.PushCString(username)
	buf.PushUint32(cpid)
	buf.PushUint32(tableID)
	pushProptags(buf, proptags)
	buf.PushUint32(rowOffset)
	buf.PushUint32(rowCount)

	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	rows := make([]Row, n)
	for i := range rows {
		cols := r.PopUint32()
		row, err := popPropvals(r, cols)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	if err := wireErr(r.Err()); err != nil {
		return nil, err
	}
	return rows, nil
}

// UnloadTable releases a table handle. Callers must invoke this on
// every path, including error paths, for every successful Load…Table.
func UnloadTable(ctx context.Context, c *Client, homedir string, tableID uint32) error {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallUnloadTable))
	buf.PushCString(homedir)
	buf.PushUint32(tableID)
	_, err := c.Send(ctx, buf.Bytes())
	return err
}

// GetFolderByName resolves a child folder id by name under parentFolderID.
func GetFolderByName(ctx context.Context, c *Client, homedir string, parentFolderID uint64, folderName string) (uint64, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallGetFolderByName))
	buf.PushCString(homedir)
	buf.PushUint64(parentFolderID)
	buf.PushCString(folderName)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return 0, err
	}
	r := wire.NewBufferFrom(resp)
	id := r.PopUint64()
	return id, wireErr(r.Err())
}

// CreateFolderByProperties creates a folder from a complete propval set.
func CreateFolderByProperties(ctx context.Context, c *Client, homedir string, cpid uint32, propvals []exmdbpp.TaggedPropval) (uint64, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallCreateFolderByProperties))
	buf.PushCString(homedir)
	buf.PushUint32(cpid)
	if err := pushPropvals(buf, propvals); err != nil {
		return 0, err
	}
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return 0, err
	}
	r := wire.NewBufferFrom(resp)
	id := r.PopUint64()
	return id, wireErr(r.Err())
}

// DeleteFolder removes a folder. hard selects a permanent delete over a
// soft delete (moved to Deleted Items / garbage collected later).
func DeleteFolder(ctx context.Context, c *Client, homedir string, cpid uint32, folderID uint64, hard bool) (bool, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallDeleteFolder))
	buf.PushCString(homedir)
	buf.PushUint32(cpid)
	buf.PushUint64(folderID)
	buf.PushBool(hard)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return false, err
	}
	r := wire.NewBufferFrom(resp)
	return r.PopBool(), wireErr(r.Err())
}

// EmptyFolder removes the selected categories of a folder's contents
// without removing the folder itself.
func EmptyFolder(ctx context.Context, c *Client, homedir string, cpid uint32, username string, folderID uint64, hard, normal, associated, subfolders bool) error {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallEmptyFolder))
	buf.PushCString(homedir)
	buf.PushUint32(cpid)
	buf.PushCString(username)
	buf.PushUint64(folderID)
	buf.PushBool(hard)
	buf.PushBool(normal)
	buf.PushBool(associated)
	buf.PushBool(subfolders)
	_, err := c.Send(ctx, buf.Bytes())
	return err
}

// SetFolderProperties overwrites the given propvals on a folder and
// returns any per-property problems the server rejected.
func SetFolderProperties(ctx context.Context, c *Client, homedir string, cpid uint32, folderID uint64, propvals []exmdbpp.TaggedPropval) ([]exmdbpp.PropertyProblem, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallSetFolderProperties))
	buf.PushCString(homedir)
	buf.PushUint32(cpid)
	buf.PushUint64(folderID)
	if err := pushPropvals(buf, propvals); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	problems := make([]exmdbpp.PropertyProblem, n)
	for i := range problems {
		problems[i] = exmdbpp.ParsePropertyProblem(r)
	}
	return problems, wireErr(r.Err())
}

// GetFolderProperties reads the requested proptags from a folder.
func GetFolderProperties(ctx context.Context, c *Client, homedir string, cpid uint32, folderID uint64, proptags []uint32) ([]exmdbpp.TaggedPropval, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallGetFolderProperties))
	buf.PushCString(homedir)
	buf.PushUint32(cpid)
	buf.PushUint64(folderID)
	pushProptags(buf, proptags)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	out, err := popPropvals(r, n)
	if err != nil {
		return nil, err
	}
	return out, wireErr(r.Err())
}

// GetAllFolderProperties lists every proptag currently set on a folder.
func GetAllFolderProperties(ctx context.Context, c *Client, homedir string, folderID uint64) ([]uint32, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallGetAllFolderProperties))
	buf.PushCString(homedir)
	buf.PushUint64(folderID)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	tags := make([]uint32, n)
	for i := range tags {
		tags[i] = r.PopUint32()
	}
	return tags, wireErr(r.Err())
}

// SetStoreProperties overwrites the given propvals on a store.
func SetStoreProperties(ctx context.Context, c *Client, homedir string, cpid uint32, propvals []exmdbpp.TaggedPropval) ([]exmdbpp.PropertyProblem, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallSetStoreProperties))
	buf.PushCString(homedir)
	buf.PushUint32(cpid)
	if err := pushPropvals(buf, propvals); err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	problems := make([]exmdbpp.PropertyProblem, n)
	for i := range problems {
		problems[i] = exmdbpp.ParsePropertyProblem(r)
	}
	return problems, wireErr(r.Err())
}

// GetStoreProperties reads the requested proptags from a store.
func GetStoreProperties(ctx context.Context, c *Client, homedir string, cpid uint32, proptags []uint32) ([]exmdbpp.TaggedPropval, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallGetStoreProperties))
	buf.PushCString(homedir)
	buf.PushUint32(cpid)
	pushProptags(buf, proptags)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	out, err := popPropvals(r, n)
	if err != nil {
		return nil, err
	}
	return out, wireErr(r.Err())
}

// GetAllStoreProperties lists every proptag currently set on a store.
func GetAllStoreProperties(ctx context.Context, c *Client, homedir string) ([]uint32, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallGetAllStoreProperties))
	buf.PushCString(homedir)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	tags := make([]uint32, n)
	for i := range tags {
		tags[i] = r.PopUint32()
	}
	return tags, wireErr(r.Err())
}

// RemoveStoreProperties removes the given proptags from a store.
func RemoveStoreProperties(ctx context.Context, c *Client, homedir string, proptags []uint32) error {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallRemoveStoreProperties))
	buf.PushCString(homedir)
	pushProptags(buf, proptags)
	_, err := c.Send(ctx, buf.Bytes())
	return err
}

// UnloadStore releases a store handle implicitly opened by prior calls.
func UnloadStore(ctx context.Context, c *Client, homedir string) error {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallUnloadStore))
	buf.PushCString(homedir)
	_, err := c.Send(ctx, buf.Bytes())
	return err
}

// UpdateFolderPermission batches a set of permission-row edits onto a
// folder's ACL.
func UpdateFolderPermission(ctx context.Context, c *Client, homedir string, folderID uint64, includeFreebusy bool, permissions []exmdbpp.PermissionData) error {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallUpdateFolderPermission))
	buf.PushCString(homedir)
	buf.PushUint64(folderID)
	buf.PushBool(includeFreebusy)
	buf.PushUint32(uint32(len(permissions)))
	for _, p := range permissions {
		if err := p.Serialize(buf); err != nil {
			return err
		}
	}
	_, err := c.Send(ctx, buf.Bytes())
	return err
}

// GetMessageProperties reads the requested proptags from one message.
func GetMessageProperties(ctx context.Context, c *Client, homedir, username string, cpid uint32, messageID uint64, proptags []uint32) ([]exmdbpp.TaggedPropval, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallGetMessageProperties))
	buf.PushCString(homedir)
	buf.PushCString(username)
	buf.PushUint32(cpid)
	buf.PushUint64(messageID)
	pushProptags(buf, proptags)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	out, err := popPropvals(r, n)
	if err != nil {
		return nil, err
	}
	return out, wireErr(r.Err())
}

// DeleteMessages removes the given message ids from a folder.
// partial reports whether the server could not delete every message.
func DeleteMessages(ctx context.Context, c *Client, homedir string, accountID uint32, cpid uint32, username string, folderID uint64, messageIDs []uint64, hard bool) (partial bool, err error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallDeleteMessages))
	buf.PushCString(homedir)
	buf.PushUint32(accountID)
	buf.PushUint32(cpid)
	buf.PushCString(username)
	buf.PushUint64(folderID)
	buf.PushUint32(uint32(len(messageIDs)))
	for _, id := range messageIDs {
		buf.PushUint64(id)
	}
	buf.PushBool(hard)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return false, err
	}
	r := wire.NewBufferFrom(resp)
	return r.PopBool(), wireErr(r.Err())
}

// QueryFolderMessages lists a folder's message ids directly, without
// the hierarchy/content-table load/unload ceremony.
func QueryFolderMessages(ctx context.Context, c *Client, homedir string, folderID uint64) ([]uint64, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallQueryFolderMessages))
	buf.PushCString(homedir)
	buf.PushUint64(folderID)
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = r.PopUint64()
	}
	return ids, wireErr(r.Err())
}

// ResolveNamedProperties resolves (and, if create is set, allocates) a
// property id for each given PropertyName, in the same order.
func ResolveNamedProperties(ctx context.Context, c *Client, homedir string, create bool, names []exmdbpp.PropertyName) ([]uint16, error) {
	buf := wire.NewBuffer()
	buf.PushByte(byte(CallResolveNamedProperties))
	buf.PushCString(homedir)
	buf.PushBool(create)
	buf.PushUint32(uint32(len(names)))
	for _, n := range names {
		n.Serialize(buf)
	}
	resp, err := c.Send(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewBufferFrom(resp)
	n := r.PopUint32()
	ids := make([]uint16, n)
	for i := range ids {
		ids[i] = r.PopUint16()
	}
	return ids, wireErr(r.Err())
}
