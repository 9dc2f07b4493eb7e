package sniffer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"blesniff/internal/advdata"
	"blesniff/internal/capture"
	"blesniff/internal/db"
	"blesniff/internal/gps"
	"blesniff/internal/remoteid"
	"blesniff/internal/util"
)

// ridMessage is one Remote ID message with the counter it arrived under.
type ridMessage struct {
	counter *uint8
	msg     remoteid.Message
}

// Handle decodes one frame and fans the result out to the console, the JSON
// stream and the store.
func (s *Sniffer) Handle(ctx context.Context, f capture.Frame) {
	if f.Time.IsZero() {
		f.Time = time.Now()
	}
	recs := s.decoder.Decode(f.Payload)

	s.frames.Add(1)
	s.records.Add(int64(len(recs)))

	var (
		rids      []ridMessage
		malformed []advdata.Malformed
	)
	for _, r := range recs {
		switch v := r.(type) {
		case advdata.RemoteID:
			rids = append(rids, ridMessage{counter: v.Counter, msg: v.Message})
		case advdata.RemoteIDPack:
			c := v.Pack.Counter
			for _, m := range v.Pack.Messages {
				rids = append(rids, ridMessage{counter: &c, msg: m})
			}
		case advdata.Malformed:
			malformed = append(malformed, v)
		}
	}
	s.malformed.Add(int64(len(malformed)))
	for _, m := range malformed {
		log.Printf("sniffer: %s malformed AD 0x%02X: %s", addrText(f.Addr), m.Type, m.Err)
	}
	s.remoteID.Add(int64(len(rids)))

	s.mu.Lock()
	if f.Addr != "" {
		s.devices[f.Addr] = struct{}{}
	}
	s.mu.Unlock()

	show := len(rids) > 0 || len(malformed) > 0 || s.shouldShow(f.Addr, f.Time)

	recJSON, err := advdata.MarshalRecords(recs)
	if err != nil {
		log.Printf("sniffer: marshal records: %v", err)
	}
	s.writeJSON(f, recJSON)

	sum := summarize(recs, s.resolver)
	if show && (!s.cfg.RemoteIDOnly || len(rids) > 0) {
		s.printAdvertisement(f, sum, recs, malformed)
	}

	fix, fixOK, _ := s.gps.Snapshot()
	locs := s.trackDrones(f.Addr, rids)
	for i, m := range rids {
		s.printRemoteID(f, m, locs[i], fix, fixOK)
	}

	if s.store == nil || !show {
		return
	}
	advID, err := s.store.InsertAdvertisement(ctx, db.AdvertisementParams{
		SessionID: s.cfg.SessionID,
		MAC:       f.Addr,
		Time:      f.Time,
		RSSI:      f.RSSI,
		Raw:       fmt.Sprintf("%x", f.Payload),
		JSON:      string(recJSON),
		Malformed: len(malformed) > 0,
		GPS:       gpsLabel(s.gps),
		Name:      sum.name,
		Company:   sum.company,
		Vendor:    s.resolver.VendorForMAC(f.Addr),
	})
	if err != nil {
		s.storeErrs.Add(1)
		log.Printf("sniffer: store advertisement %s: %v", f.Addr, err)
		return
	}
	for i, m := range rids {
		p := ridParams(m.msg)
		p.SessionID = s.cfg.SessionID
		p.AdvertisementID = advID
		p.MAC = f.Addr
		p.Time = f.Time
		p.Counter = m.counter
		if p.DroneID == "" {
			p.DroneID = locs[i]
		}
		if d, ok := rangeTo(fix, fixOK, m.msg); ok {
			p.DistanceM = &d
		}
		if b, err := remoteid.MarshalMessage(m.msg); err == nil {
			p.JSON = string(b)
		}
		if _, err := s.store.InsertRemoteIDMessage(ctx, p); err != nil {
			s.storeErrs.Add(1)
			log.Printf("sniffer: store remote id %s: %v", f.Addr, err)
		}
	}
}

// trackDrones remembers the Basic ID last heard from each address and
// returns, per message, the drone id it belongs to.
func (s *Sniffer) trackDrones(addr string, rids []ridMessage) []string {
	out := make([]string, len(rids))
	if len(rids) == 0 {
		return out
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Basic ID messages in the same pack apply to every message in it.
	for _, m := range rids {
		switch v := m.msg.(type) {
		case remoteid.BasicID:
			s.noteDrone(addr, v.DroneID)
		case remoteid.MessageType22:
			s.noteDrone(addr, v.DroneID)
		}
	}
	for i := range rids {
		out[i] = s.droneByAddr[addr]
	}
	return out
}

// noteDrone binds droneID to addr. Callers hold s.mu.
func (s *Sniffer) noteDrone(addr, droneID string) {
	if droneID == "" {
		return
	}
	if prev, ok := s.droneByAddr[addr]; !ok || prev != droneID {
		log.Printf("sniffer: drone %s heard from %s", droneID, addrText(addr))
	}
	s.droneByAddr[addr] = droneID
	s.drones[droneID] = struct{}{}
}

func gpsLabel(g *gps.State) *string {
	if l := g.Label(); l != "" {
		return &l
	}
	return nil
}

// rangeTo is the distance from the receiver to a drone position.
func rangeTo(fix gps.Fix, ok bool, m remoteid.Message) (float64, bool) {
	loc, isLoc := m.(remoteid.LocationVector)
	if !ok || !isLoc || (loc.Latitude == 0 && loc.Longitude == 0) {
		return 0, false
	}
	return gps.Distance(fix.Lat, fix.Lon, loc.Latitude, loc.Longitude), true
}

func ridParams(m remoteid.Message) db.RemoteIDParams {
	p := db.RemoteIDParams{MessageType: m.MessageType(), MessageName: m.Name()}
	switch v := m.(type) {
	case remoteid.BasicID:
		p.DroneID = v.DroneID
	case remoteid.LocationVector:
		if v.Latitude != 0 || v.Longitude != 0 {
			lat, lon := v.Latitude, v.Longitude
			p.Latitude, p.Longitude = &lat, &lon
		}
		alt := float64(v.GeodeticAltitude)
		speed := v.SpeedMPS()
		dir := v.TrackDirection()
		p.Altitude, p.Speed, p.Direction = &alt, &speed, &dir
	case remoteid.SelfID:
		p.Description = v.Description
	case remoteid.OperatorID:
		p.OperatorID = v.OperatorID
	case remoteid.MessageType22:
		p.DroneID = v.DroneID
		p.Description = v.Description
	}
	return p
}

type jsonFrame struct {
	Time     time.Time       `json:"time"`
	Source   string          `json:"source,omitempty"`
	Addr     string          `json:"addr,omitempty"`
	AddrType string          `json:"addr_type,omitempty"`
	RSSI     *int            `json:"rssi,omitempty"`
	Raw      string          `json:"raw"`
	Records  json.RawMessage `json:"records"`
}

func (s *Sniffer) writeJSON(f capture.Frame, recs []byte) {
	if s.jsonOut == nil {
		return
	}
	if recs == nil {
		recs = []byte("[]")
	}
	b, err := json.Marshal(jsonFrame{
		Time:     f.Time,
		Source:   f.Source,
		Addr:     f.Addr,
		AddrType: f.AddrType,
		RSSI:     f.RSSI,
		Raw:      fmt.Sprintf("%x", f.Payload),
		Records:  recs,
	})
	if err != nil {
		log.Printf("sniffer: json frame: %v", err)
		return
	}
	s.jsonMu.Lock()
	defer s.jsonMu.Unlock()
	_, _ = s.jsonOut.Write(append(b, '\n'))
}

func rssiText(r *int) string {
	if r == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *r)
}

func addrText(a string) string {
	if a == "" {
		return "--"
	}
	return a
}

func (s *Sniffer) printAdvertisement(f capture.Frame, sum summary, recs []advdata.Record, malformed []advdata.Malformed) {
	parts := []string{addrText(f.Addr), "RSSI: " + rssiText(f.RSSI)}
	if sum.name != "" {
		parts = append(parts, fmt.Sprintf("Name: %q", util.Ellipsis(sum.name, 32)))
	}
	if sum.company != "" {
		parts = append(parts, "Company: "+sum.company)
	}
	if len(sum.services) > 0 {
		parts = append(parts, "Services: "+strings.Join(sum.services, ", "))
	}
	parts = append(parts, fmt.Sprintf("Records: %d", len(recs)))
	util.Line("[ADV]", util.ColorGreen, strings.Join(parts, " "))

	if s.cfg.Verbose {
		for _, r := range recs {
			if _, ok := r.(advdata.Malformed); ok {
				continue
			}
			util.Line("", "", "    "+r.String())
		}
	}
	for _, m := range malformed {
		util.Linef("[MALFORMED]", util.ColorRed, "%s %s", addrText(f.Addr), m.String())
	}
}

func (s *Sniffer) printRemoteID(f capture.Frame, m ridMessage, droneID string, fix gps.Fix, fixOK bool) {
	var b strings.Builder
	b.WriteString(addrText(f.Addr))
	if m.counter != nil {
		fmt.Fprintf(&b, " #%d", *m.counter)
	}
	if droneID != "" {
		fmt.Fprintf(&b, " [%s]", droneID)
	}
	b.WriteString(" ")
	b.WriteString(fmt.Sprint(m.msg))
	if d, ok := rangeTo(fix, fixOK, m.msg); ok {
		fmt.Fprintf(&b, " range %.0f m", d)
	}
	color := util.ColorMagenta
	if _, ok := m.msg.(remoteid.Error); ok {
		color = util.ColorRed
	}
	util.Line("[RID]", color, b.String())
}
