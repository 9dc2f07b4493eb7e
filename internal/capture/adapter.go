package capture

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	tg "tinygo.org/x/bluetooth"

	"blesniff/internal/util"
)

// AdapterSource scans with a local controller through tinygo bluetooth.
type AdapterSource struct {
	AdapterID string
}

func (s *AdapterSource) Name() string { return "adapter:" + s.AdapterID }

func (s *AdapterSource) Run(ctx context.Context, out chan<- Frame) error {
	adapter := tg.NewAdapter(s.AdapterID)
	if err := adapter.Enable(); err != nil {
		return err
	}

	// Best-effort: BlueZ may still consider an earlier scan active.
	_ = adapter.StopScan()
	time.Sleep(150 * time.Millisecond)

	util.Linef("[CAPTURE]", util.ColorGray, "scanning on %s", s.AdapterID)
	log.Printf("capture: scanning on %s", s.AdapterID)

	scanErr := make(chan error, 1)
	go func() {
		scanErr <- adapter.Scan(func(_ *tg.Adapter, res tg.ScanResult) {
			f := frameFromScan(res)
			f.Source = s.Name()
			send(ctx, out, f)
		})
	}()

	select {
	case <-ctx.Done():
		_ = adapter.StopScan()
		select {
		case <-scanErr:
		case <-time.After(8 * time.Second):
			return errors.New("scan stop timeout (bluez still discovering)")
		}
		return nil
	case err := <-scanErr:
		_ = adapter.StopScan()
		return err
	}
}

func frameFromScan(res tg.ScanResult) Frame {
	mac := strings.ToUpper(res.Address.String())
	rssi := int(res.RSSI)
	f := Frame{
		Time:     time.Now(),
		Addr:     mac,
		AddrType: ClassifyAddress(mac, res.Address.IsRandom()),
		RSSI:     &rssi,
	}

	// Raw bytes are only available on stacks that expose them.
	if raw := res.Bytes(); len(raw) > 0 {
		f.Payload = append([]byte(nil), raw...)
		return f
	}

	fields := Fields{
		Name:             res.LocalName(),
		ManufacturerData: map[uint16][]byte{},
		ServiceData:      map[uuid.UUID][]byte{},
	}
	for _, u := range res.ServiceUUIDs() {
		if v, err := uuid.Parse(u.String()); err == nil {
			fields.ServiceUUIDs = append(fields.ServiceUUIDs, v)
		}
	}
	for _, m := range res.ManufacturerData() {
		fields.ManufacturerData[m.CompanyID] = append([]byte(nil), m.Data...)
	}
	for _, sd := range res.ServiceData() {
		if v, err := uuid.Parse(sd.UUID.String()); err == nil {
			fields.ServiceData[v] = append([]byte(nil), sd.Data...)
		}
	}
	f.Payload = fields.Payload()
	return f
}
