package capture

import (
	"context"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"
)

type managedMap = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func adapterPath(id string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + strings.TrimSpace(id))
}

func managedObjects(ctx context.Context, conn *dbus.Conn) (managedMap, error) {
	root := conn.Object("org.bluez", dbus.ObjectPath("/"))
	call := root.CallWithContext(ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0)
	if call.Err != nil {
		return nil, call.Err
	}
	var managed managedMap
	if err := call.Store(&managed); err != nil {
		return nil, err
	}
	return managed, nil
}

func adapterExists(ctx context.Context, conn *dbus.Conn, id string) bool {
	managed, err := managedObjects(ctx, conn)
	if err != nil {
		return false
	}
	_, ok := managed[adapterPath(id)]["org.bluez.Adapter1"]
	return ok
}

// ensurePowered sets Adapter1.Powered=true, best-effort.
func ensurePowered(ctx context.Context, conn *dbus.Conn, id string) error {
	return conn.Object("org.bluez", adapterPath(id)).CallWithContext(ctx, "org.freedesktop.DBus.Properties.Set", 0,
		"org.bluez.Adapter1", "Powered", dbus.MakeVariant(true)).Err
}

// Adapter is a BlueZ controller.
type Adapter struct {
	ID      string
	Address string
	Powered bool
}

// ListAdapters returns the BlueZ controllers sorted by id (hci0, hci1...).
func ListAdapters(ctx context.Context) ([]Adapter, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	managed, err := managedObjects(ctx, conn)
	if err != nil {
		return nil, err
	}
	var out []Adapter
	for path, ifaces := range managed {
		ad, ok := ifaces["org.bluez.Adapter1"]
		if !ok {
			continue
		}
		a := Adapter{ID: strings.TrimPrefix(string(path), "/org/bluez/")}
		a.Address, _ = getString(ad, "Address")
		a.Powered, _ = ad["Powered"].Value().(bool)
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Adapter) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}
