package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"github.com/catalogizer/medialibrary/notifier"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeviceRepository implements the Device contracts of spec §3/§4.6.
// Presence flips propagate to every owned media row through the
// device_presence_update trigger (spec §4.5), which in turn cascades
// into the album/artist/genre/group present counters.
type DeviceRepository struct {
	conn     *db.DB
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewDeviceRepository(conn *db.DB, n *notifier.Notifier, logger *zap.Logger) *DeviceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceRepository{conn: conn, notifier: n, logger: logger}
}

const deviceColumns = `id_device, uuid, scheme, is_removable, is_network, is_present, last_seen, cached_mountpoint`

func scanDevice(row interface{ Scan(...interface{}) error }) (*models.Device, error) {
	var d models.Device
	var lastSeen int64
	var mountpoint sql.NullString
	if err := row.Scan(&d.ID, &d.UUID, &d.Scheme, &d.IsRemovable, &d.IsNetwork, &d.IsPresent, &lastSeen, &mountpoint); err != nil {
		return nil, err
	}
	d.LastSeen = time.Unix(lastSeen, 0)
	d.CachedMountpoint = mountpoint.String
	return &d, nil
}

// Create inserts a Device. An empty deviceUUID means the lister could
// not derive a stable hardware UUID; a random one is generated, so each
// such call inserts a new device. No lookup by mountpoint is made.
func (r *DeviceRepository) Create(ctx context.Context, deviceUUID, scheme string, isRemovable, isNetwork bool, mountpoint string) (*models.Device, error) {
	if deviceUUID == "" {
		deviceUUID = uuid.NewString()
	}
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO device(uuid, scheme, is_removable, is_network, is_present, last_seen, cached_mountpoint)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		deviceUUID, scheme, isRemovable, isNetwork, time.Now().Unix(), nullString(mountpoint))
	if err != nil {
		return nil, wrapErr(err, "create device")
	}
	if r.notifier != nil {
		r.notifier.NotifyAdded(notifier.KindDevice, id)
	}
	return r.GetByID(ctx, id)
}

func (r *DeviceRepository) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM device WHERE id_device = ?`, deviceColumns), id)
	return scanDevice(row)
}

func (r *DeviceRepository) GetByUUID(ctx context.Context, deviceUUID, scheme string) (*models.Device, error) {
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM device WHERE uuid = ? AND scheme = ?`, deviceColumns), deviceUUID, scheme)
	return scanDevice(row)
}

// GetOrCreate finds a device by (uuid, scheme), creating it if
// unknown — the path Folder.Ban takes when banning an mrl on a device
// the catalog has never seen (spec §4.6).
func (r *DeviceRepository) GetOrCreate(ctx context.Context, deviceUUID, scheme string, isRemovable, isNetwork bool, mountpoint string) (*models.Device, error) {
	existing, err := r.GetByUUID(ctx, deviceUUID, scheme)
	if err == nil {
		return existing, nil
	}
	if !notFound(err) {
		return nil, err
	}
	created, err := r.Create(ctx, deviceUUID, scheme, isRemovable, isNetwork, mountpoint)
	if isIdempotentConstraintError(err) {
		return r.GetByUUID(ctx, deviceUUID, scheme)
	}
	return created, err
}

// SetPresent flips the device's presence; the device_presence_update
// trigger mirrors the new value onto every media whose device_id
// matches, which in turn drives the present-counter triggers.
func (r *DeviceRepository) SetPresent(ctx context.Context, id int64, present bool) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE device SET is_present = ?, last_seen = ? WHERE id_device = ?`,
		present, time.Now().Unix(), id)
	if err != nil {
		return wrapErr(err, "set device presence")
	}
	if r.notifier != nil {
		r.notifier.NotifyModified(notifier.KindDevice, id)
	}
	return nil
}

// UpdateMountpoint refreshes the cached mountpoint recorded the last
// time the device was seen.
func (r *DeviceRepository) UpdateMountpoint(ctx context.Context, id int64, mountpoint string) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE device SET cached_mountpoint = ?, last_seen = ? WHERE id_device = ?`,
		nullString(mountpoint), time.Now().Unix(), id)
	return wrapErr(err, "update device mountpoint")
}

// ListAll returns every known device, most recently seen first.
func (r *DeviceRepository) ListAll(ctx context.Context) ([]*models.Device, error) {
	rows, err := r.conn.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM device ORDER BY last_seen DESC`, deviceColumns))
	if err != nil {
		return nil, wrapErr(err, "list devices")
	}
	defer rows.Close()
	var out []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes a device; folders and media on it cascade via foreign
// keys.
func (r *DeviceRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM device WHERE id_device = ?`, id)
	if err != nil {
		return wrapErr(err, "delete device")
	}
	if r.notifier != nil {
		r.notifier.NotifyRemoved(notifier.KindDevice, id)
	}
	return nil
}
