package capture

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"blesniff/internal/util"
)

// BlueZSource runs LE discovery over D-Bus and polls the Device1 objects.
// Unlike tinygo it also sees AdvertisingData, the AD types BlueZ does not parse.
type BlueZSource struct {
	AdapterID string
	Interval  time.Duration
	// Duplicates re-emits unchanged advertisements on every poll.
	Duplicates bool
}

func (s *BlueZSource) Name() string { return "bluez:" + s.AdapterID }

func (s *BlueZSource) Run(ctx context.Context, out chan<- Frame) error {
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	if !adapterExists(ctx, conn, s.AdapterID) {
		return fmt.Errorf("bluez adapter %s not found", s.AdapterID)
	}
	_ = ensurePowered(ctx, conn, s.AdapterID)

	adapterObj := conn.Object("org.bluez", adapterPath(s.AdapterID))
	_ = adapterObj.CallWithContext(ctx, "org.bluez.Adapter1.SetDiscoveryFilter", 0, map[string]dbus.Variant{
		"Transport":     dbus.MakeVariant("le"),
		"DuplicateData": dbus.MakeVariant(true),
	}).Err
	if err := adapterObj.CallWithContext(ctx, "org.bluez.Adapter1.StartDiscovery", 0).Err; err != nil && !strings.Contains(err.Error(), "InProgress") {
		return fmt.Errorf("start discovery: %w", err)
	}
	defer func() {
		_ = adapterObj.Call("org.bluez.Adapter1.StopDiscovery", 0).Err
		_ = adapterObj.Call("org.bluez.Adapter1.SetDiscoveryFilter", 0, map[string]dbus.Variant{}).Err
	}()

	util.Linef("[CAPTURE]", util.ColorGray, "bluez discovery on %s", s.AdapterID)
	log.Printf("capture: bluez discovery on %s", s.AdapterID)

	seen := map[string]string{}
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		frames, err := s.poll(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("capture: bluez poll: %v", err)
			continue
		}
		for _, f := range frames {
			key := fmt.Sprintf("%d|%x", *f.RSSI, f.Payload)
			if !s.Duplicates && seen[f.Addr] == key {
				continue
			}
			seen[f.Addr] = key
			if !send(ctx, out, f) {
				return nil
			}
		}
	}
}

func (s *BlueZSource) poll(ctx context.Context, conn *dbus.Conn) ([]Frame, error) {
	managed, err := managedObjects(ctx, conn)
	if err != nil {
		return nil, err
	}
	prefix := string(adapterPath(s.AdapterID)) + "/dev_"
	now := time.Now()
	var out []Frame
	for path, ifaces := range managed {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		dev1, ok := ifaces["org.bluez.Device1"]
		if !ok {
			continue
		}
		f, ok := frameFromDevice(dev1)
		if !ok {
			continue
		}
		f.Time = now
		f.Source = s.Name()
		out = append(out, f)
	}
	return out, nil
}

// frameFromDevice rebuilds a payload from Device1 properties. Devices that
// were not heard recently (no RSSI) are skipped.
func frameFromDevice(dev1 map[string]dbus.Variant) (Frame, bool) {
	addr, _ := getString(dev1, "Address")
	addr = strings.ToUpper(strings.TrimSpace(addr))
	rssi := getIntPtr(dev1, "RSSI")
	if addr == "" || rssi == nil {
		return Frame{}, false
	}
	addrType, _ := getString(dev1, "AddressType")

	fields := Fields{
		ManufacturerData: manufacturerData(dev1),
		ServiceData:      serviceData(dev1),
		Extra:            advertisingData(dev1),
	}
	fields.Name, _ = getString(dev1, "Name")
	if tx := getIntPtr(dev1, "TxPower"); tx != nil {
		v := int8(*tx)
		fields.TxPower = &v
	}
	if list, ok := dev1["UUIDs"].Value().([]string); ok {
		for _, u := range list {
			if v, err := uuid.Parse(u); err == nil {
				fields.ServiceUUIDs = append(fields.ServiceUUIDs, v)
			}
		}
	}

	return Frame{
		Addr:     addr,
		AddrType: ClassifyAddress(addr, addrType == "random"),
		RSSI:     rssi,
		Payload:  fields.Payload(),
	}, true
}

func getString(props map[string]dbus.Variant, key string) (string, bool) {
	v, ok := props[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

func getIntPtr(props map[string]dbus.Variant, key string) *int {
	v, ok := props[key]
	if !ok {
		return nil
	}
	var n int
	switch x := v.Value().(type) {
	case int16:
		n = int(x)
	case int32:
		n = int(x)
	case int:
		n = x
	default:
		return nil
	}
	return &n
}

func variantBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return append([]byte(nil), b...), true
	case dbus.Variant:
		return variantBytes(b.Value())
	default:
		return nil, false
	}
}

func manufacturerData(props map[string]dbus.Variant) map[uint16][]byte {
	v, ok := props["ManufacturerData"]
	if !ok {
		return nil
	}
	out := map[uint16][]byte{}
	switch mm := v.Value().(type) {
	case map[uint16][]byte:
		for k, b := range mm {
			out[k] = append([]byte(nil), b...)
		}
	case map[uint16]dbus.Variant:
		for k, vv := range mm {
			if b, ok := variantBytes(vv); ok {
				out[k] = b
			}
		}
	}
	return out
}

func serviceData(props map[string]dbus.Variant) map[uuid.UUID][]byte {
	v, ok := props["ServiceData"]
	if !ok {
		return nil
	}
	out := map[uuid.UUID][]byte{}
	add := func(k string, raw any) {
		u, err := uuid.Parse(strings.TrimSpace(k))
		if err != nil {
			return
		}
		if b, ok := variantBytes(raw); ok {
			out[u] = b
		}
	}
	switch mm := v.Value().(type) {
	case map[string][]byte:
		for k, b := range mm {
			add(k, b)
		}
	case map[string]dbus.Variant:
		for k, vv := range mm {
			add(k, vv)
		}
	}
	return out
}

// advertisingData reads the Device1 AdvertisingData property (a{yv}).
func advertisingData(props map[string]dbus.Variant) map[byte][]byte {
	v, ok := props["AdvertisingData"]
	if !ok {
		return nil
	}
	out := map[byte][]byte{}
	switch mm := v.Value().(type) {
	case map[byte][]byte:
		for k, b := range mm {
			out[k] = append([]byte(nil), b...)
		}
	case map[byte]dbus.Variant:
		for k, vv := range mm {
			if b, ok := variantBytes(vv); ok {
				out[k] = b
			}
		}
	}
	return out
}
